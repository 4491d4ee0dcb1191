package topic

// Topic は、公園で噂になっている「話題」を表します。
// ハスラーたちの雑談のネタとして、プロンプトに埋め込まれます。
type Topic struct {
	// Title は、話題のタイトルや見出しです。
	Title string

	// Summary は、話題の短い要約です。
	Summary string

	// SourceURL は、話題の出所を示すURLです。
	SourceURL string
}
