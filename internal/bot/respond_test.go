package bot

import (
	"context"
	"strings"
	"testing"
)

func TestSplitMessage(t *testing.T) {
	tests := []struct {
		name   string
		input  string
		max    int
		chunks int
	}{
		{"empty", "", 500, 0},
		{"short", "hello", 500, 1},
		{"exact", strings.Repeat("a", 500), 500, 1},
		{"one over", strings.Repeat("a", 501), 500, 2},
		{"several", strings.Repeat("a", 1250), 500, 3},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			chunks := splitMessage(tt.input, tt.max)
			if len(chunks) != tt.chunks {
				t.Fatalf("chunks = %d, want %d", len(chunks), tt.chunks)
			}
			for i, c := range chunks {
				if n := len([]rune(c)); n > tt.max {
					t.Errorf("chunk %d has %d runes, want <= %d", i, n, tt.max)
				}
			}
			if strings.Join(chunks, "") != tt.input {
				t.Error("concatenated chunks should reconstruct the input")
			}
		})
	}
}

func TestSplitMessage_Multibyte(t *testing.T) {
	input := strings.Repeat("中", 7)
	chunks := splitMessage(input, 3)
	if len(chunks) != 3 {
		t.Fatalf("chunks = %d, want 3", len(chunks))
	}
	if strings.Join(chunks, "") != input {
		t.Error("multibyte input must survive segmentation intact")
	}
	for i, c := range chunks[:2] {
		if len([]rune(c)) != 3 {
			t.Errorf("chunk %d rune len = %d, want 3", i, len([]rune(c)))
		}
	}
}

func TestRespond_LongReplySegmented(t *testing.T) {
	backend := &mockBackend{completeReply: strings.Repeat("x", 1200)}
	b, out := newTestBot(t, testBotConfig(), backend)

	b.respond(context.Background(), Conversation{Kind: Private, ID: "alice", ChatID: "1", Channel: "telegram"}, "hi")

	msgs := drainOutbound(out)
	if len(msgs) != 3 {
		t.Fatalf("outbound len = %d, want 3", len(msgs))
	}
	var joined strings.Builder
	for _, m := range msgs {
		if len([]rune(m.Content)) > singleMessageMax {
			t.Errorf("chunk exceeds %d runes", singleMessageMax)
		}
		joined.WriteString(m.Content)
	}
	if joined.String() != backend.completeReply {
		t.Error("segmented reply should concatenate back to the original")
	}
}

func TestSay_BlockedReplyDropped(t *testing.T) {
	cfg := testBotConfig()
	cfg.ModelBlockWords = []string{"forbidden"}
	backend := &mockBackend{completeReply: "this is forbidden " + strings.Repeat("x", 600)}
	b, out := newTestBot(t, cfg, backend)

	b.respond(context.Background(), Conversation{Kind: Private, ID: "alice", ChatID: "1", Channel: "telegram"}, "hi")

	// The whole reply is dropped, not just the chunk with the word.
	if msgs := drainOutbound(out); len(msgs) != 0 {
		t.Errorf("outbound = %+v, want nothing", msgs)
	}
}

func TestRespond_GroupFormat(t *testing.T) {
	backend := &mockBackend{completeReply: "answer"}
	b, out := newTestBot(t, testBotConfig(), backend)

	b.respond(context.Background(), Conversation{Kind: Group, ID: "room", ChatID: "2", Channel: "telegram", Sender: "alice"}, "hi")

	msgs := drainOutbound(out)
	if len(msgs) != 1 {
		t.Fatalf("outbound len = %d, want 1", len(msgs))
	}
	if msgs[0].Content != "@alice\n------\nanswer" {
		t.Errorf("content = %q, want mention header", msgs[0].Content)
	}
}

func TestRespond_HistoryPassedToBackend(t *testing.T) {
	backend := &mockBackend{completeReply: "second answer"}
	b, _ := newTestBot(t, testBotConfig(), backend)

	conv := Conversation{Kind: Private, ID: "alice", ChatID: "1", Channel: "telegram"}
	backend.completeReply = "first answer"
	b.respond(context.Background(), conv, "first question")
	backend.completeReply = "second answer"
	b.respond(context.Background(), conv, "second question")

	backend.mu.Lock()
	defer backend.mu.Unlock()
	if len(backend.histories) != 2 {
		t.Fatalf("backend calls = %d, want 2", len(backend.histories))
	}
	// Second call sees the system entry plus the first exchange
	second := backend.histories[1]
	if len(second) != 3 {
		t.Fatalf("second history len = %d, want 3", len(second))
	}
	if second[1].Content != "first question" || second[2].Content != "first answer" {
		t.Errorf("second history = %+v", second)
	}
}
