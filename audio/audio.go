// SPDX-License-Identifier: EPL-2.0

package audio

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"
)

type Source interface {
	// SampleRate of the PCM stream in Hz.
	SampleRate() int
	// Channels count (e.g., 1=mono, 2=stereo).
	Channels() int
	// ReadSamples fills dst with interleaved float32 samples in [-1,1].
	// Returns number of float32 values written (not frames). When n == 0 with err == io.EOF, the stream is finished.
	ReadSamples(dst []float32) (n int, err error)

	BufSize() int

	// Close releases any resources.
	Close() error
}

// Seeker is implemented by sources that can jump to a frame without
// decoding everything before it.
type Seeker interface {
	SeekFrame(frame int64) error
}

// Lengther is implemented by sources that know their length in frames.
type Lengther interface {
	Frames() int64
}

// LoopPointer is implemented by sources carrying loop metadata. A zero end
// means the loop runs to the end of the data.
type LoopPointer interface {
	LoopPoints() (start, end uint32)
}

// Decoder constructs a Source from an input reader.
type Decoder interface {
	Decode(r io.Reader) (Source, error)
}

// Opener opens a fresh Source positioned at the first frame.
type Opener func() (Source, error)

// Registry for decoders by format key (e.g., "wav", "mp3", "vorbis").
type Registry struct {
	codecs map[string]Decoder
	exts   map[string]string

	mtx *sync.Mutex
}

func NewRegistry() *Registry {
	return &Registry{
		codecs: make(map[string]Decoder),
		exts:   make(map[string]string),
		mtx:    &sync.Mutex{},
	}
}

// Register adds a decoder under format. Any file extensions given (with or
// without the leading dot) are mapped to it for Lookup.
func (r *Registry) Register(format string, d Decoder, exts ...string) {
	r.mtx.Lock()
	defer r.mtx.Unlock()

	r.codecs[format] = d
	r.exts[format] = format
	for _, ext := range exts {
		r.exts[normalizeExt(ext)] = format
	}
}

func (r *Registry) Get(format string) (Decoder, bool) {
	r.mtx.Lock()
	defer r.mtx.Unlock()

	d, ok := r.codecs[format]
	return d, ok
}

// Formats lists the registered format keys in sorted order.
func (r *Registry) Formats() []string {
	r.mtx.Lock()
	defer r.mtx.Unlock()

	out := make([]string, 0, len(r.codecs))
	for k := range r.codecs {
		out = append(out, k)
	}
	sort.Strings(out)
	return out
}

// Lookup picks a decoder from the extension of path.
func (r *Registry) Lookup(path string) (Decoder, error) {
	ext := normalizeExt(filepath.Ext(path))

	r.mtx.Lock()
	defer r.mtx.Unlock()

	format, ok := r.exts[ext]
	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrUnknownFormat, ext)
	}
	return r.codecs[format], nil
}

// OpenFile decodes the file at path. Closing the returned Source closes the
// file.
func (r *Registry) OpenFile(path string) (Source, error) {
	dec, err := r.Lookup(path)
	if err != nil {
		return nil, err
	}

	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open %s: %w", path, err)
	}

	src, err := dec.Decode(f)
	if err != nil {
		f.Close()
		return nil, fmt.Errorf("%w: %s: %w", ErrInvalidSourceData, path, err)
	}

	return &fileSource{Source: src, f: f}, nil
}

// Opener returns an Opener that reopens path on every call.
func (r *Registry) Opener(path string) Opener {
	return func() (Source, error) {
		return r.OpenFile(path)
	}
}

// TrackFromFile fully decodes path into memory, passing the decoded data
// through conv first.
func (r *Registry) TrackFromFile(path string, conv ...Conversion) (*PCMTrack, error) {
	src, err := r.OpenFile(path)
	if err != nil {
		return nil, err
	}
	src = Convert(src, conv...)
	defer src.Close()

	return DecodeTrack(src)
}

// StreamFromFile prepares path for chunked playback. Nothing is decoded
// until the stream is loaded.
func (r *Registry) StreamFromFile(path string, opts ...StreamOption) (*SourceStream, error) {
	if _, err := r.Lookup(path); err != nil {
		return nil, err
	}
	return NewSourceStream(r.Opener(path), opts...)
}

func normalizeExt(ext string) string {
	return strings.ToLower(strings.TrimPrefix(ext, "."))
}

// fileSource forwards the optional capabilities of the wrapped decoder.
type fileSource struct {
	Source
	f *os.File
}

func (s *fileSource) Close() error {
	err := s.Source.Close()
	if cerr := s.f.Close(); err == nil {
		err = cerr
	}
	return err
}

func (s *fileSource) SeekFrame(frame int64) error {
	sk, ok := s.Source.(Seeker)
	if !ok {
		return ErrSeekUnsupported
	}
	return sk.SeekFrame(frame)
}

func (s *fileSource) Frames() int64 {
	if l, ok := s.Source.(Lengther); ok {
		return l.Frames()
	}
	return -1
}

func (s *fileSource) LoopPoints() (uint32, uint32) {
	if lp, ok := s.Source.(LoopPointer); ok {
		return lp.LoopPoints()
	}
	return 0, 0
}
