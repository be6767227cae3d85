package engine

import (
	"errors"
	"testing"

	"github.com/google/uuid"
)

func TestAnswerStoreOverwrite(t *testing.T) {
	store := NewAnswerStore()
	qid := uuid.New()

	if err := store.Set(qid, optA, optB); err != nil {
		t.Fatalf("Set returned error: %v", err)
	}
	if err := store.Set(qid, optC); err != nil {
		t.Fatalf("Set returned error: %v", err)
	}

	sel := store.Get(qid)
	if !sel.Equal(NewSelection(optC)) {
		t.Fatalf("re-answering must replace the selection wholesale, got %v", sel)
	}
}

func TestAnswerStoreEmptySelectionStillAnswered(t *testing.T) {
	store := NewAnswerStore()
	qid := uuid.New()

	if store.IsAnswered(qid) {
		t.Fatal("unanswered question reported as answered")
	}

	// Recording an explicit empty selection still creates an entry.
	if err := store.Set(qid); err != nil {
		t.Fatalf("Set returned error: %v", err)
	}
	if !store.IsAnswered(qid) {
		t.Fatal("explicit empty selection must count as a store entry")
	}
	if len(store.Get(qid)) != 0 {
		t.Fatal("expected empty selection")
	}
}

func TestAnswerStoreProgress(t *testing.T) {
	def := definitionWith(
		singleChoiceQuestion(2, optB),
		multiChoiceQuestion(3, optA, optB),
		singleChoiceQuestion(1, optC),
	)
	store := NewAnswerStore()

	progress := store.OverallProgress(def)
	if progress.Total != 3 || progress.Answered != 0 || progress.Percentage != 0 {
		t.Fatalf("unexpected empty progress: %+v", progress)
	}

	q0 := def.Sections[0].Questions[0]
	q2 := def.Sections[0].Questions[2]
	store.Set(q0.ID, optB)
	store.Set(q2.ID, optC)

	progress = store.OverallProgress(def)
	if progress.Answered != 2 || progress.Total != 3 {
		t.Fatalf("expected 2/3 answered, got %d/%d", progress.Answered, progress.Total)
	}
	if progress.Answered > progress.Total {
		t.Fatal("answered exceeded total")
	}
	want := float64(2) / float64(3) * 100
	if progress.Percentage != want {
		t.Fatalf("expected percentage %v, got %v", want, progress.Percentage)
	}

	sp := store.SectionProgress(&def.Sections[0])
	if sp.TotalQuestions != 3 || sp.AnsweredQuestions != 2 || sp.IsCompleted {
		t.Fatalf("unexpected section progress: %+v", sp)
	}

	q1 := def.Sections[0].Questions[1]
	store.Set(q1.ID, optA, optB)
	sp = store.SectionProgress(&def.Sections[0])
	if !sp.IsCompleted {
		t.Fatal("expected section completed after answering every question")
	}
}

func TestAnswerStoreFreeze(t *testing.T) {
	store := NewAnswerStore()
	qid := uuid.New()
	store.Set(qid, optA)

	store.Freeze()
	if err := store.Set(qid, optB); !errors.Is(err, ErrStoreFrozen) {
		t.Fatalf("expected ErrStoreFrozen, got %v", err)
	}
	if !store.Get(qid).Equal(NewSelection(optA)) {
		t.Fatal("frozen store must keep the pre-freeze selection")
	}
}

func TestAnswerStoreSnapshotIsolation(t *testing.T) {
	store := NewAnswerStore()
	qid := uuid.New()
	store.Set(qid, optA)

	snap := store.Snapshot()
	store.Set(qid, optB)

	if !snap[qid].Equal(NewSelection(optA)) {
		t.Fatal("snapshot must not observe later writes")
	}
}

func TestAnswerStoreNotifiesSubscribers(t *testing.T) {
	store := NewAnswerStore()
	fired := 0
	store.OnChange(func() { fired++ })

	store.Set(uuid.New(), optA)
	store.Set(uuid.New())
	if fired != 2 {
		t.Fatalf("expected 2 notifications, got %d", fired)
	}

	store.Freeze()
	_ = store.Set(uuid.New(), optB)
	if fired != 2 {
		t.Fatalf("rejected writes must not notify, got %d", fired)
	}
}
