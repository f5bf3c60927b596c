package ffmpeg

import (
	"reflect"
	"testing"
	"time"
)

func TestAudioArgsDeterministic(t *testing.T) {
	spec := AudioSpec{GainDB: 4.5, Normalize: true, SilencePad: true, TrimLead: 1500 * time.Millisecond}
	first := AudioArgs("in.wav", "out.mp3", spec)
	second := AudioArgs("in.wav", "out.mp3", spec)
	if !reflect.DeepEqual(first, second) {
		t.Fatalf("args differ between calls:\n%v\n%v", first, second)
	}
}

func TestAudioArgsFilterChain(t *testing.T) {
	args := AudioArgs("in.wav", "out.mp3", AudioSpec{GainDB: 3, Normalize: true, SilencePad: true})
	af := argValue(t, args, "-af")
	want := "volume=3dB,dynaudnorm,adelay=1000|1000,apad=pad_dur=1s"
	if af != want {
		t.Fatalf("filter chain = %q, want %q", af, want)
	}
}

func TestAudioArgsNoFilters(t *testing.T) {
	args := AudioArgs("in.wav", "out.mp3", AudioSpec{})
	for _, arg := range args {
		if arg == "-af" {
			t.Fatal("no filter flag expected for empty spec")
		}
		if arg == "-ss" {
			t.Fatal("no seek flag expected without trim")
		}
	}
}

func TestAudioArgsPinsDeterminismFlags(t *testing.T) {
	args := AudioArgs("in.wav", "out.mp3", AudioSpec{Normalize: true})
	for _, required := range []string{"-map_metadata", "+bitexact", "-ac", "-ar"} {
		if !contains(args, required) {
			t.Fatalf("args missing %q: %v", required, args)
		}
	}
	if argValue(t, args, "-ac") != "1" {
		t.Fatal("channels must be mono")
	}
	if argValue(t, args, "-ar") != "44100" {
		t.Fatal("sample rate must be 44100")
	}
}

func TestAudioArgsTrimLead(t *testing.T) {
	args := AudioArgs("in.wav", "out.mp3", AudioSpec{TrimLead: 2 * time.Second})
	if argValue(t, args, "-ss") != "2" {
		t.Fatalf("seek = %q", argValue(t, args, "-ss"))
	}
	// Seek must come before the input for input-side trimming.
	ssIdx, inIdx := index(args, "-ss"), index(args, "-i")
	if ssIdx > inIdx {
		t.Fatalf("-ss at %d must precede -i at %d", ssIdx, inIdx)
	}
}

func TestParseMaxVolume(t *testing.T) {
	output := `
[Parsed_volumedetect_0 @ 0x5555] n_samples: 4410000
[Parsed_volumedetect_0 @ 0x5555] mean_volume: -21.3 dB
[Parsed_volumedetect_0 @ 0x5555] max_volume: -12.5 dB
`
	peak, ok := parseMaxVolume(output)
	if !ok {
		t.Fatal("expected max_volume to parse")
	}
	if peak != -12.5 {
		t.Fatalf("peak = %g, want -12.5", peak)
	}
}

func TestParseMaxVolumeMissing(t *testing.T) {
	if _, ok := parseMaxVolume("no volume info here"); ok {
		t.Fatal("expected parse failure")
	}
}

func argValue(t *testing.T, args []string, flag string) string {
	t.Helper()
	for i, arg := range args {
		if arg == flag && i+1 < len(args) {
			return args[i+1]
		}
	}
	t.Fatalf("flag %q not found in %v", flag, args)
	return ""
}

func contains(args []string, want string) bool {
	for _, arg := range args {
		if arg == want {
			return true
		}
	}
	return false
}

func index(args []string, want string) int {
	for i, arg := range args {
		if arg == want {
			return i
		}
	}
	return -1
}
