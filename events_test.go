package models

import "testing"

func TestSignalHubCompletions(t *testing.T) {
	h := newSignalHub()

	speech := h.subscribeCompletions(KindSpeech)
	language := h.subscribeCompletions(KindLanguage)

	h.publishCompletion(KindSpeech, "tiny.bin")

	select {
	case got := <-speech:
		if got != "tiny.bin" {
			t.Errorf("speech signal = %q, want tiny.bin", got)
		}
	default:
		t.Error("no signal on the speech channel")
	}

	select {
	case got := <-language:
		t.Errorf("language channel received speech completion %q", got)
	default:
	}
}

func TestSignalHubMultipleSubscribers(t *testing.T) {
	h := newSignalHub()

	a := h.subscribeCompletions(KindSpeech)
	b := h.subscribeCompletions(KindSpeech)

	h.publishCompletion(KindSpeech, "tiny.bin")

	for i, ch := range []<-chan string{a, b} {
		select {
		case got := <-ch:
			if got != "tiny.bin" {
				t.Errorf("subscriber %d got %q", i, got)
			}
		default:
			t.Errorf("subscriber %d missed the signal", i)
		}
	}
}

func TestSignalHubChanges(t *testing.T) {
	h := newSignalHub()
	ch := h.subscribeChanges()

	t.Run("coalesces bursts", func(t *testing.T) {
		for i := 0; i < 5; i++ {
			h.publishChange()
		}

		select {
		case <-ch:
		default:
			t.Fatal("no change signal after publish")
		}
		select {
		case <-ch:
			t.Error("burst delivered more than one pending signal")
		default:
		}
	})

	t.Run("signals again after drain", func(t *testing.T) {
		h.publishChange()
		select {
		case <-ch:
		default:
			t.Error("no signal after draining the previous one")
		}
	})
}

func TestSignalHubFullSubscriberNeverBlocks(t *testing.T) {
	h := newSignalHub()
	ch := h.subscribeCompletions(KindSpeech)

	// Overflow the buffer; publishes past capacity must drop, not stall.
	for i := 0; i < completionBuffer+8; i++ {
		h.publishCompletion(KindSpeech, "tiny.bin")
	}

	if len(ch) != completionBuffer {
		t.Errorf("buffered signals = %d, want %d", len(ch), completionBuffer)
	}
}

func TestSignalHubClose(t *testing.T) {
	h := newSignalHub()
	completions := h.subscribeCompletions(KindSpeech)
	changes := h.subscribeChanges()

	h.close()

	if _, ok := <-completions; ok {
		t.Error("completion channel not closed by hub shutdown")
	}
	if _, ok := <-changes; ok {
		t.Error("change channel not closed by hub shutdown")
	}

	// Publishing and closing again after shutdown are harmless no-ops.
	h.publishCompletion(KindSpeech, "late.bin")
	h.publishChange()
	h.close()

	t.Run("subscribe after close returns a closed channel", func(t *testing.T) {
		ch := h.subscribeCompletions(KindSpeech)
		if _, ok := <-ch; ok {
			t.Error("post-close subscription returned an open channel")
		}
	})
}
