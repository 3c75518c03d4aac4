package usage

import (
	"sync"
	"testing"

	"github.com/quillforge/aiengine/internal/adapter"
	"github.com/quillforge/aiengine/internal/domain"
)

func TestTracker_Record(t *testing.T) {
	tr := NewTracker()

	tr.Record(domain.ProviderOpenAI, "gpt-4o", adapter.Usage{PromptTokens: 10, CompletionTokens: 20, TotalTokens: 30})
	tr.Record(domain.ProviderOpenAI, "gpt-4o-mini", adapter.Usage{PromptTokens: 5, CompletionTokens: 5, TotalTokens: 10})
	tr.Record(domain.ProviderGroq, "llama-3.3-70b-versatile", adapter.Usage{TotalTokens: 100})

	report := tr.Report()

	openai := report[domain.ProviderOpenAI]
	if openai.Requests != 2 {
		t.Errorf("openai.Requests = %d, want 2", openai.Requests)
	}
	if openai.TotalTokens != 40 {
		t.Errorf("openai.TotalTokens = %d, want 40", openai.TotalTokens)
	}
	if openai.ByModel["gpt-4o"] != 30 {
		t.Errorf("ByModel[gpt-4o] = %d, want 30", openai.ByModel["gpt-4o"])
	}

	if report[domain.ProviderGroq].TotalTokens != 100 {
		t.Errorf("groq.TotalTokens = %d, want 100", report[domain.ProviderGroq].TotalTokens)
	}
}

func TestTracker_ReportIsACopy(t *testing.T) {
	tr := NewTracker()
	tr.Record(domain.ProviderGemini, "gemini-1.5-flash", adapter.Usage{TotalTokens: 10})

	report := tr.Report()
	report[domain.ProviderGemini].ByModel["gemini-1.5-flash"] = 9999

	if tr.Report()[domain.ProviderGemini].ByModel["gemini-1.5-flash"] != 10 {
		t.Error("mutating a report leaked into the tracker")
	}
}

func TestTracker_Concurrent(t *testing.T) {
	tr := NewTracker()

	var wg sync.WaitGroup
	for i := 0; i < 50; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			tr.Record(domain.ProviderAnthropic, "claude-3-5-sonnet-20241022", adapter.Usage{TotalTokens: 1})
			tr.Report()
		}()
	}
	wg.Wait()

	if got := tr.Report()[domain.ProviderAnthropic].TotalTokens; got != 50 {
		t.Errorf("TotalTokens = %d, want 50", got)
	}
}
