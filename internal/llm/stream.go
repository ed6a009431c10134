package llm

import (
	"bufio"
	"io"
	"sync"

	"github.com/ashita-ai/quill/internal/model"
)

// LineParser decodes one line of an event stream. It returns the text
// fragment carried by the line (possibly empty) and whether the line ends
// the stream. A non-nil error ends the stream and is reported by Err as is.
type LineParser func(line string) (text string, done bool, err error)

// Stream is a finite, single-pass sequence of text fragments.
//
//	s, err := p.Stream(ctx, req)
//	if err != nil { ... }
//	defer s.Close()
//	for s.Next() {
//		fmt.Print(s.Text())
//	}
//	if err := s.Err(); err != nil { ... }
//
// Once Next returns false it returns false forever. Close releases the
// underlying connection and may be called at any point, more than once.
type Stream struct {
	provider string
	body     io.ReadCloser
	scanner  *bufio.Scanner
	parse    LineParser

	text      string
	err       error
	finished  bool
	lastLine  bool
	closeOnce sync.Once
}

// NewStream reads body line by line through parse. The built-in backends
// use it for their HTTP responses; any other line source can be adapted the
// same way. The stream owns body and closes it when it ends or is closed.
func NewStream(provider string, body io.ReadCloser, parse LineParser) *Stream {
	scanner := bufio.NewScanner(body)
	scanner.Buffer(make([]byte, 64*1024), 1024*1024)
	return &Stream{provider: provider, body: body, scanner: scanner, parse: parse}
}

// Next advances to the next non-empty fragment.
func (s *Stream) Next() bool {
	if s.finished {
		return false
	}
	if s.lastLine {
		s.finish()
		return false
	}
	for s.scanner.Scan() {
		text, done, err := s.parse(s.scanner.Text())
		if err != nil {
			s.err = err
			s.finish()
			return false
		}
		if text != "" {
			s.text = text
			s.lastLine = done
			return true
		}
		if done {
			s.finish()
			return false
		}
	}
	if err := s.scanner.Err(); err != nil && !s.finished {
		s.err = &Error{Provider: s.provider, Kind: model.FailureNetwork, Message: "stream interrupted", Err: err}
	}
	s.finish()
	return false
}

// Text returns the fragment produced by the last successful Next.
func (s *Stream) Text() string { return s.text }

// Err returns the error that ended the stream, if any.
func (s *Stream) Err() error { return s.err }

// Close abandons the stream and releases the connection.
func (s *Stream) Close() error {
	var err error
	s.finished = true
	s.text = ""
	s.closeOnce.Do(func() { err = s.body.Close() })
	return err
}

func (s *Stream) finish() {
	s.text = ""
	s.finished = true
	s.closeOnce.Do(func() { _ = s.body.Close() })
}

// Collect drains s and returns the concatenated text. The stream is closed
// on return.
func Collect(s *Stream) (string, error) {
	defer func() { _ = s.Close() }()
	var out []byte
	for s.Next() {
		out = append(out, s.Text()...)
	}
	return string(out), s.Err()
}
