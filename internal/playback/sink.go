package playback

// Source describes one live media stream to render.
type Source struct {
	URL   string
	Title string
}

// Sink is the minimal surface the controller drives: attach a live
// source, release it, and nudge playback back to the live edge. The
// controller holds exclusive ownership of its sink.
type Sink interface {
	// Attach loads the source and begins playback. On failure the sink
	// holds no resources; the surface simply stays empty.
	Attach(src Source) error
	// Detach stops playback and releases everything. Safe to call when
	// nothing is attached.
	Detach()
	// SeekToLiveEdge seeks to the end of the currently buffered range,
	// if there is one. Best effort.
	SeekToLiveEdge() error
}
