package types

// Document is the decoded text of one collected file
type Document struct {
	Path string // Slash-separated, relative to the collection root
	Text string
}

// SkippedFile records a file the collector could not turn into a Document
type SkippedFile struct {
	Path   string
	Reason error
}
