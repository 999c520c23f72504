package ingest

import "testing"

func TestClassify(t *testing.T) {
	cases := map[string]SourceType{
		"0":                            SourceTypeDevice,
		"2":                            SourceTypeDevice,
		"rtsp://cam.local/stream":      SourceTypeRTSP,
		"RTSP://cam.local/stream":      SourceTypeRTSP,
		"http://cam.local/mjpeg":       SourceTypeHTTP,
		"https://cam.local/mjpeg":      SourceTypeHTTP,
		"rtmp://media.local/live":      SourceTypeRTMP,
		"/videos/lobby.mp4":            SourceTypeFile,
		"/videos/lobby.MKV":            SourceTypeFile,
		"/videos/lobby.txt":            SourceTypeUnknown,
		"not-a-source-at-all":          SourceTypeUnknown,
	}

	for uri, want := range cases {
		if got := Classify(uri); got != want {
			t.Errorf("Classify(%q) = %q, want %q", uri, got, want)
		}
	}
}
