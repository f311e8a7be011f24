package zenforce

import (
	"reflect"
	"testing"
)

// decodeAll pushes the stream through the decoder in chunks of the given
// size and collects every completed line.
func decodeAll(t *testing.T, stream []byte, chunkSize int) []string {
	t.Helper()
	var dec LineDecoder
	var lines []string
	for start := 0; start < len(stream); start += chunkSize {
		end := start + chunkSize
		if end > len(stream) {
			end = len(stream)
		}
		lines = append(lines, dec.Push(stream[start:end])...)
	}
	return lines
}

func TestLineDecoder_ChunkBoundaryInvariance(t *testing.T) {
	// Multi-byte runes ensure chunk boundaries fall inside UTF-8 sequences
	// for small chunk sizes.
	stream := []byte("data: première ligne\n\ndata: 金融データ\ndata: [DONE]\n")

	want := decodeAll(t, stream, len(stream))
	if len(want) != 4 {
		t.Fatalf("whole-stream decode produced %d lines, want 4: %q", len(want), want)
	}

	for _, chunkSize := range []int{1, 2, 3, 5, 7, 16, 64} {
		got := decodeAll(t, stream, chunkSize)
		if !reflect.DeepEqual(got, want) {
			t.Errorf("chunk size %d: lines = %q, want %q", chunkSize, got, want)
		}
	}
}

func TestLineDecoder_Push(t *testing.T) {
	tests := []struct {
		name   string
		chunks []string
		want   []string
	}{
		{
			name:   "single complete line",
			chunks: []string{"hello\n"},
			want:   []string{"hello"},
		},
		{
			name:   "line split across chunks",
			chunks: []string{"hel", "lo\nwor", "ld\n"},
			want:   []string{"hello", "world"},
		},
		{
			name:   "empty lines preserved",
			chunks: []string{"a\n\n\nb\n"},
			want:   []string{"a", "", "", "b"},
		},
		{
			name:   "delimiter alone in chunk",
			chunks: []string{"abc", "\n"},
			want:   []string{"abc"},
		},
		{
			name:   "no delimiter emits nothing",
			chunks: []string{"abc", "def"},
			want:   nil,
		},
		{
			name:   "empty chunk is a no-op",
			chunks: []string{"", "x\n", ""},
			want:   []string{"x"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var dec LineDecoder
			var got []string
			for _, chunk := range tt.chunks {
				got = append(got, dec.Push([]byte(chunk))...)
			}
			if !reflect.DeepEqual(got, tt.want) {
				t.Errorf("lines = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestLineDecoder_TrailingFragment(t *testing.T) {
	var dec LineDecoder

	lines := dec.Push([]byte("complete\npartial"))
	if !reflect.DeepEqual(lines, []string{"complete"}) {
		t.Fatalf("lines = %q, want [complete]", lines)
	}
	if dec.Pending() != len("partial") {
		t.Errorf("Pending() = %d, want %d", dec.Pending(), len("partial"))
	}

	// A later chunk supplies the terminator: the fragment is completed,
	// never lost.
	lines = dec.Push([]byte(" line\n"))
	if !reflect.DeepEqual(lines, []string{"partial line"}) {
		t.Errorf("lines = %q, want [partial line]", lines)
	}

	// Stream-end policy: an unterminated fragment is dropped by Reset.
	dec.Push([]byte("severed"))
	dec.Reset()
	if dec.Pending() != 0 {
		t.Errorf("Pending() after Reset = %d, want 0", dec.Pending())
	}
	if lines := dec.Push([]byte("\n")); !reflect.DeepEqual(lines, []string{""}) {
		t.Errorf("post-Reset decode leaked discarded bytes: %q", lines)
	}
}
