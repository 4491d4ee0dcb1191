package hustler

import (
	"errors"
	"fmt"
	"math/rand"
	"sync"

	"github.com/AnglerfishChess/chessplaza/configs"
	"gopkg.in/yaml.v3"
)

// ErrNotFound は、指定された ID のハスラーが登録されていない場合に返されます。
var ErrNotFound = errors.New("hustler not found")

// Registry は、ID からハスラーを引くための静的な台帳です。
// 起動時に一度だけ登録され、セッション中は変更されない前提です。
type Registry struct {
	mu      sync.RWMutex
	byID    map[string]*Hustler
	ordered []*Hustler
}

// NewRegistry は空の Registry を生成します。
func NewRegistry() *Registry {
	return &Registry{
		byID: make(map[string]*Hustler),
	}
}

// Default は、埋め込みリソースのハスラーを登録済みの Registry を返します。
func Default() (*Registry, error) {
	r := NewRegistry()
	if err := r.LoadYAML(configs.Hustlers); err != nil {
		return nil, err
	}
	return r, nil
}

type rosterFile struct {
	Hustlers []*Hustler `yaml:"hustlers"`
}

// LoadYAML は YAML で書かれたハスラー一覧を登録します。
func (r *Registry) LoadYAML(data []byte) error {
	var f rosterFile
	if err := yaml.Unmarshal(data, &f); err != nil {
		return fmt.Errorf("failed to unmarshal hustlers: %w", err)
	}
	for _, h := range f.Hustlers {
		if h.ID == "" {
			continue
		}
		r.Register(h)
	}
	return nil
}

// Register はハスラーを登録します。
// 同じ ID が既にあれば上書きします（後勝ち）。並び順は最初の登録位置のままです。
func (r *Registry) Register(h *Hustler) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, exists := r.byID[h.ID]; exists {
		for i, o := range r.ordered {
			if o.ID == h.ID {
				r.ordered[i] = h
				break
			}
		}
	} else {
		r.ordered = append(r.ordered, h)
	}
	r.byID[h.ID] = h
}

// Lookup は ID からハスラーを返します。
func (r *Registry) Lookup(id string) (*Hustler, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	h, ok := r.byID[id]
	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrNotFound, id)
	}
	return h, nil
}

// All は登録順のハスラー一覧を返します。
func (r *Registry) All() []*Hustler {
	if r == nil {
		return nil
	}
	r.mu.RLock()
	defer r.mu.RUnlock()

	out := make([]*Hustler, len(r.ordered))
	copy(out, r.ordered)
	return out
}

// IDs は登録順の ID 一覧を返します。
func (r *Registry) IDs() []string {
	all := r.All()
	ids := make([]string, 0, len(all))
	for _, h := range all {
		ids = append(ids, h.ID)
	}
	return ids
}

// Len は登録数を返します。
func (r *Registry) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.ordered)
}

// Random はヘルプ表示などに使うハスラーをランダムに一人選びます。
func (r *Registry) Random(rng *rand.Rand) (*Hustler, error) {
	all := r.All()
	if len(all) == 0 {
		return nil, fmt.Errorf("no hustlers available")
	}
	if rng == nil {
		return all[rand.Intn(len(all))], nil
	}
	return all[rng.Intn(len(all))], nil
}
