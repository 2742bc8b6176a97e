package keys

import "testing"

func TestThumbnailRoundTrip(t *testing.T) {
	cases := []struct {
		kind   ThumbnailKind
		format ImageFormat
		want   string
	}{
		{SmallSquare, Avif, "thumb/a1_sm.avif"},
		{LargeOrigAspect, Webp, "thumb/a1.webp"},
	}
	for _, c := range cases {
		got := Thumbnail("a1", c.kind, c.format)
		if got != c.want {
			t.Fatalf("Thumbnail(%v, %v) = %q, want %q", c.kind, c.format, got, c.want)
		}
	}
}

func TestImageKeyScale(t *testing.T) {
	if got, want := Image("a1", 0, Jpeg), "image/a1.jpg"; got != want {
		t.Fatalf("got %q want %q", got, want)
	}
	if got, want := Image("a1", 2, Avif), "image/a1_2x.avif"; got != want {
		t.Fatalf("got %q want %q", got, want)
	}
}

func TestDashKeys(t *testing.T) {
	if got, want := DashManifest("a1"), "dash/a1/stream.mpd"; got != want {
		t.Fatalf("got %q want %q", got, want)
	}
	track := DashTrack("a1", DashVideoTrackName(1920, 1080))
	if got, want := track, "dash/a1/1920x1080.mp4"; got != want {
		t.Fatalf("got %q want %q", got, want)
	}
	if got, want := MediaInfoSibling(track), "dash/a1/1920x1080.mp4.media_info"; got != want {
		t.Fatalf("got %q want %q", got, want)
	}
}
