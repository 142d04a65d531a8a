package plan

import (
	"strings"
	"testing"
)

func validPlan() Plan {
	return Plan{
		ID: "feature-x",
		Items: []ItemSpec{
			{ID: "design", Title: "Design the API", Specialization: "backend"},
			{ID: "build", Title: "Build the API", Specialization: "backend", DependsOn: []string{"design"}},
			{ID: "style", Title: "Style the page", Specialization: "frontend"},
		},
	}
}

func TestPlanValidateAcceptsWellFormedPlan(t *testing.T) {
	if err := validPlan().Validate(); err != nil {
		t.Fatalf("expected valid plan, got %v", err)
	}
}

func TestPlanValidateRejectsMissingID(t *testing.T) {
	p := validPlan()
	p.ID = "  "
	if err := p.Validate(); err == nil {
		t.Fatal("expected error for missing plan id")
	}
}

func TestPlanValidateRejectsEmptyItems(t *testing.T) {
	p := validPlan()
	p.Items = nil
	if err := p.Validate(); err == nil {
		t.Fatal("expected error for plan without items")
	}
}

func TestPlanValidateRejectsDuplicateItemIDs(t *testing.T) {
	p := validPlan()
	p.Items = append(p.Items, ItemSpec{ID: "design", Title: "Again", Specialization: "backend"})
	err := p.Validate()
	if err == nil || !strings.Contains(err.Error(), "duplicate item id") {
		t.Fatalf("expected duplicate id error, got %v", err)
	}
}

func TestPlanValidateRejectsUnknownDependency(t *testing.T) {
	p := validPlan()
	p.Items[1].DependsOn = []string{"missing"}
	err := p.Validate()
	if err == nil || !strings.Contains(err.Error(), "unknown item") {
		t.Fatalf("expected dangling dependency error, got %v", err)
	}
}

func TestItemSpecValidateRejectsSelfDependency(t *testing.T) {
	item := ItemSpec{ID: "a", Title: "A", Specialization: "backend", DependsOn: []string{"a"}}
	if err := item.Validate(); err == nil {
		t.Fatal("expected self-dependency error")
	}
}

func TestItemSpecValidateRejectsDuplicateDependency(t *testing.T) {
	item := ItemSpec{ID: "a", Title: "A", Specialization: "backend", DependsOn: []string{"b", "b"}}
	if err := item.Validate(); err == nil {
		t.Fatal("expected duplicate dependency error")
	}
}

func TestNormalizedTrimsIdentifiers(t *testing.T) {
	p := Plan{
		ID: "  plan-1  ",
		Items: []ItemSpec{
			{ID: " design ", Title: "Design", Specialization: " Backend "},
			{ID: "build", Title: "Build", Specialization: "backend", DependsOn: []string{" design "}},
		},
	}
	normalized, err := p.Normalized()
	if err != nil {
		t.Fatalf("Normalized returned error: %v", err)
	}
	if normalized.ID != "plan-1" {
		t.Fatalf("expected trimmed plan id, got %q", normalized.ID)
	}
	if normalized.Items[0].ID != "design" || normalized.Items[0].Specialization != "Backend" {
		t.Fatalf("expected trimmed item fields, got %+v", normalized.Items[0])
	}
	if normalized.Items[1].DependsOn[0] != "design" {
		t.Fatalf("expected trimmed dependency, got %q", normalized.Items[1].DependsOn[0])
	}
	// the source plan is untouched
	if p.Items[0].ID != " design " {
		t.Fatal("Normalized mutated its receiver")
	}
}

func TestCheckCoverageMatchesCaseInsensitively(t *testing.T) {
	p := validPlan()
	roster := []WorkerSpec{
		{ID: "w1", Name: "One", Specialization: "BACKEND"},
		{ID: "w2", Name: "Two", Specialization: "Frontend"},
	}
	if err := p.CheckCoverage(roster); err != nil {
		t.Fatalf("expected coverage, got %v", err)
	}
}

func TestCheckCoverageReportsMissingSpecialization(t *testing.T) {
	p := validPlan()
	roster := []WorkerSpec{{ID: "w1", Name: "One", Specialization: "backend"}}
	err := p.CheckCoverage(roster)
	if err == nil || !strings.Contains(err.Error(), "frontend") {
		t.Fatalf("expected missing frontend coverage error, got %v", err)
	}
}

func TestCloneIsDeep(t *testing.T) {
	p := validPlan()
	p.Metadata = map[string]string{"source": "doc"}
	clone := p.Clone()
	clone.Items[0].DependsOn = append(clone.Items[0].DependsOn, "build")
	clone.Metadata["source"] = "changed"
	if len(p.Items[0].DependsOn) != 0 {
		t.Fatal("clone shares the DependsOn slice")
	}
	if p.Metadata["source"] != "doc" {
		t.Fatal("clone shares the metadata map")
	}
}
