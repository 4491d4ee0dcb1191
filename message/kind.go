package message

type Kind string

const (
	KindNarrative Kind = "narrative"
	KindSpeech    Kind = "speech"
	KindPlayer    Kind = "player"
	KindSystem    Kind = "system"
	KindBoard     Kind = "board"
	KindError     Kind = "error"
	KindLog       Kind = "log"
)
