package session

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"sync"
)

// Input はプレイヤーの入力を一行ずつ読みます。入力が尽きたら io.EOF を返します。
type Input interface {
	ReadLine(ctx context.Context) (string, error)
}

// LineReader は端末などから一行ずつ読む Input です。
// 読み込みは別の goroutine で行うので、ctx が終われば入力を待たずに戻ります。
// そのとき読みかけの行は捨てずに、次の ReadLine で返します。
type LineReader struct {
	scanner *bufio.Scanner
	out     io.Writer
	prompt  string

	once     sync.Once
	requests chan struct{}
	results  chan lineResult
	waiting  bool
	final    error
}

type lineResult struct {
	text string
	err  error
}

func NewLineReader(r io.Reader, out io.Writer, prompt string) *LineReader {
	return &LineReader{
		scanner:  bufio.NewScanner(r),
		out:      out,
		prompt:   prompt,
		requests: make(chan struct{}, 1),
		results:  make(chan lineResult, 1),
	}
}

func (l *LineReader) ReadLine(ctx context.Context) (string, error) {
	if l.final != nil {
		return "", l.final
	}
	if err := ctx.Err(); err != nil {
		return "", err
	}
	l.once.Do(func() { go l.scan() })

	if !l.waiting {
		if l.out != nil && l.prompt != "" {
			fmt.Fprint(l.out, l.prompt)
		}
		l.requests <- struct{}{}
		l.waiting = true
	}

	select {
	case <-ctx.Done():
		return "", ctx.Err()
	case res := <-l.results:
		l.waiting = false
		if res.err != nil {
			l.final = res.err
		}
		return res.text, res.err
	}
}

// scan は頼まれた分だけ読みます。先読みはしません。
func (l *LineReader) scan() {
	for range l.requests {
		if l.scanner.Scan() {
			l.results <- lineResult{text: l.scanner.Text()}
			continue
		}
		err := io.EOF
		if serr := l.scanner.Err(); serr != nil {
			err = fmt.Errorf("session.LineReader.ReadLine: %w", serr)
		}
		l.results <- lineResult{err: err}
		return
	}
}
