package stage

import "testing"

func TestStageOrdering(t *testing.T) {
	if !(S0 < S1 && S1 < S2 && S2 < S3) {
		t.Fatalf("expected S0 < S1 < S2 < S3")
	}
}

func TestStageDisplay(t *testing.T) {
	if got := S0.String(); got != "S0: Signal Segmentation" {
		t.Fatalf("got %q", got)
	}
	if got := S3.String(); got != "S3: Recursive Optimization" {
		t.Fatalf("got %q", got)
	}
}

func TestAssessEmptyGraphIsS0(t *testing.T) {
	p := Assess(0)
	if p.Current != S0 {
		t.Fatalf("expected S0, got %v", p.Current)
	}
	if p.StableEdgesNeeded != s1Threshold {
		t.Fatalf("expected needed %d, got %d", s1Threshold, p.StableEdgesNeeded)
	}
	if p.ProgressPercent != 0 {
		t.Fatalf("expected 0%% progress, got %d", p.ProgressPercent)
	}
}

func TestAssessAtS1Threshold(t *testing.T) {
	p := Assess(s1Threshold)
	if p.Current != S1 {
		t.Fatalf("expected S1, got %v", p.Current)
	}
	if p.StableEdgesNeeded != s2Threshold {
		t.Fatalf("expected needed %d, got %d", s2Threshold, p.StableEdgesNeeded)
	}
}

func TestAssessHalfwayToS2(t *testing.T) {
	half := s1Threshold + (s2Threshold-s1Threshold)/2
	p := Assess(uint64(half))
	if p.Current != S1 {
		t.Fatalf("expected S1, got %v", p.Current)
	}
	if p.ProgressPercent != 50 {
		t.Fatalf("expected 50%% progress, got %d", p.ProgressPercent)
	}
}

func TestAssessTerminalStageReportsFullProgress(t *testing.T) {
	p := Assess(s3Threshold * 10)
	if p.Current != S3 {
		t.Fatalf("expected S3, got %v", p.Current)
	}
	if !p.Current.IsTerminal() {
		t.Fatalf("expected S3 to be terminal")
	}
	if p.ProgressPercent != 100 {
		t.Fatalf("expected 100%% progress, got %d", p.ProgressPercent)
	}
	if p.StableEdgesNeeded != 0 {
		t.Fatalf("expected 0 needed at terminal stage, got %d", p.StableEdgesNeeded)
	}
}

func TestStageNextPrevious(t *testing.T) {
	next, ok := S0.Next()
	if !ok || next != S1 {
		t.Fatalf("expected S1, got %v ok=%v", next, ok)
	}
	if _, ok := S3.Next(); ok {
		t.Fatalf("expected S3.Next() to report no further stage")
	}
	prev, ok := S2.Previous()
	if !ok || prev != S1 {
		t.Fatalf("expected S1, got %v ok=%v", prev, ok)
	}
	if _, ok := S0.Previous(); ok {
		t.Fatalf("expected S0.Previous() to report no prior stage")
	}
}

func TestCapabilitiesAtS0OnlyCoreOnes(t *testing.T) {
	caps := Capabilities(S0)
	if len(caps) != 2 {
		t.Fatalf("expected 2 capabilities at S0, got %d", len(caps))
	}
	for _, c := range caps {
		if c.RequiredStage() != S0 {
			t.Fatalf("capability %v requires %v, expected S0", c, c.RequiredStage())
		}
	}
}

func TestCapabilitiesAtS3IncludesAll(t *testing.T) {
	if got := len(Capabilities(S3)); got != 10 {
		t.Fatalf("expected all 10 capabilities at S3, got %d", got)
	}
}

func TestDensityPerThousand(t *testing.T) {
	if got := DensityPerThousand(123_456); got != 123 {
		t.Fatalf("expected 123, got %d", got)
	}
}
