package render

import (
	"bytes"
	"encoding/binary"
	"errors"
	"testing"
)

func TestNotes(t *testing.T) {
	t.Parallel()

	got := Notes("X:1\nK:G\nGAb c|z2")
	want := []float64{392.00, 440.00, 493.88, 261.63}
	if len(got) != len(want) {
		t.Fatalf("got %v want %v", got, want)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Fatalf("note %d: got %v want %v", i, got[i], want[i])
		}
	}
}

func TestRenderHeader(t *testing.T) {
	t.Parallel()

	s := NewSynth()
	wav, err := s.Render("CDE")
	if err != nil {
		t.Fatalf("Render: %v", err)
	}
	perNote := int(DefaultSampleRate * DefaultNoteLength)
	dataSize := 3 * perNote * 2
	if len(wav) != wavHeaderSize+dataSize {
		t.Fatalf("len = %d, want %d", len(wav), wavHeaderSize+dataSize)
	}
	if !bytes.Equal(wav[0:4], []byte("RIFF")) || !bytes.Equal(wav[8:12], []byte("WAVE")) {
		t.Fatalf("bad magic: %q %q", wav[0:4], wav[8:12])
	}
	if !bytes.Equal(wav[12:16], []byte("fmt ")) || !bytes.Equal(wav[36:40], []byte("data")) {
		t.Fatalf("bad chunk ids: %q %q", wav[12:16], wav[36:40])
	}
	le := binary.LittleEndian
	if got := le.Uint32(wav[4:8]); got != uint32(36+dataSize) {
		t.Errorf("riff size = %d", got)
	}
	if got := le.Uint16(wav[22:24]); got != 1 {
		t.Errorf("channels = %d", got)
	}
	if got := le.Uint32(wav[24:28]); got != DefaultSampleRate {
		t.Errorf("sample rate = %d", got)
	}
	if got := le.Uint16(wav[34:36]); got != 16 {
		t.Errorf("bits per sample = %d", got)
	}
	if got := le.Uint32(wav[40:44]); got != uint32(dataSize) {
		t.Errorf("data size = %d", got)
	}
}

func TestRenderAmplitudeBound(t *testing.T) {
	t.Parallel()

	s := &Synth{SampleRate: 8000, NoteLength: 0.1, Amplitude: 0.5}
	wav, err := s.Render("A")
	if err != nil {
		t.Fatalf("Render: %v", err)
	}
	pcm := make([]int16, (len(wav)-wavHeaderSize)/2)
	if err := binary.Read(bytes.NewReader(wav[wavHeaderSize:]), binary.LittleEndian, pcm); err != nil {
		t.Fatalf("read pcm: %v", err)
	}
	if len(pcm) != 800 {
		t.Fatalf("samples = %d, want 800", len(pcm))
	}
	if pcm[0] != 0 {
		t.Errorf("first sample = %d, want 0", pcm[0])
	}
	var peak int16
	for _, v := range pcm {
		if v < 0 {
			v = -v
		}
		peak = max(peak, v)
	}
	if peak > 16384 || peak < 16000 {
		t.Fatalf("peak = %d, want close to half scale", peak)
	}
}

func TestRenderFallbackTone(t *testing.T) {
	t.Parallel()

	s := NewSynth()
	silent, err := s.Render("X:1\n|:z2:|")
	if err != nil {
		t.Fatalf("Render: %v", err)
	}
	a, err := s.Render("A")
	if err != nil {
		t.Fatalf("Render: %v", err)
	}
	if !bytes.Equal(silent, a) {
		t.Fatal("text without notes should render the fallback tone")
	}
}

func TestRenderInvalidOptions(t *testing.T) {
	t.Parallel()

	cases := []Synth{
		{SampleRate: 0, NoteLength: 0.25, Amplitude: 0.5},
		{SampleRate: 44100, NoteLength: 0, Amplitude: 0.5},
		{SampleRate: 44100, NoteLength: 0.25, Amplitude: 0},
		{SampleRate: 44100, NoteLength: 0.25, Amplitude: 1.5},
	}
	for i, s := range cases {
		if _, err := s.Render("A"); !errors.Is(err, ErrInvalidOptions) {
			t.Errorf("case %d: expected ErrInvalidOptions, got %v", i, err)
		}
	}
}

var _ Renderer = (*Synth)(nil)
