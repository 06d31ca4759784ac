package doctor

// mockCheck implements Check for testing.
type mockCheck struct {
	name     string
	category string
	result   *CheckResult
	runs     int
}

func (m *mockCheck) Name() string     { return m.name }
func (m *mockCheck) Category() string { return m.category }

func (m *mockCheck) Run() *CheckResult {
	m.runs++
	return m.result
}

// mockFixer is a mockCheck that can fix what it finds.
type mockFixer struct {
	mockCheck
	canFix bool
	fixed  int
}

func (m *mockFixer) CanFix() bool { return m.canFix }

func (m *mockFixer) Fix() []FixResult {
	m.fixed++
	return []FixResult{{Path: m.name, Fixed: true, Description: "fixed"}}
}
