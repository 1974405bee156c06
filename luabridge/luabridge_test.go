package luabridge

import (
	"testing"

	lua "github.com/yuin/gopher-lua"
)

func TestPathAPI(t *testing.T) {
	b := New()
	defer b.Close()

	script := `
results = {}
results.dir = path.getdirectory("C:\\foo\\bar.txt")
results.name = path.getname("C:\\foo\\bar.txt")
results.base = path.getbasename("C:\\foo\\bar.txt")
results.ext = path.getextension("C:\\foo\\bar.txt")
results.drive = path.getdrive("C:\\foo\\bar.txt")
results.joined = path.join("C:\\foo", "bar.txt")
`
	if err := b.L.DoString(script); err != nil {
		t.Fatal(err)
	}

	results, ok := b.L.GetGlobal("results").(*lua.LTable)
	if !ok {
		t.Fatalf("results is not a table: %v", b.L.GetGlobal("results"))
	}
	want := map[string]string{
		"dir":    `C:\foo`,
		"name":   "bar.txt",
		"base":   "bar",
		"ext":    ".txt",
		"drive":  "C:",
		"joined": `C:\foo\bar.txt`,
	}
	for field, expect := range want {
		got := lua.LVAsString(results.RawGetString(field))
		if got != expect {
			t.Fatalf("%s = %q, want %q", field, got, expect)
		}
	}
}

func TestMatchGeneratorClaimsAndFiltersPrompt(t *testing.T) {
	b := New()
	defer b.Close()

	script := `
clink.register_match_generator(function(line, builder)
    if line.word == "gi" then
        table.insert(builder, "git")
        table.insert(builder, "gitk")
        return true
    end
    return false
end)

clink.register_prompt_filter(function(prompt)
    return prompt .. " $ "
end)
`
	if err := b.L.DoString(script); err != nil {
		t.Fatal(err)
	}

	matches, err := b.GenerateMatches(LineState{Line: "gi", Cursor: 2, Word: "gi"})
	if err != nil {
		t.Fatal(err)
	}
	if len(matches) != 2 || matches[0] != "git" || matches[1] != "gitk" {
		t.Fatalf("matches = %v", matches)
	}

	none, err := b.GenerateMatches(LineState{Line: "xy", Cursor: 2, Word: "xy"})
	if err != nil {
		t.Fatal(err)
	}
	if len(none) != 0 {
		t.Fatalf("matches = %v, want none", none)
	}

	prompt, err := b.FilterPrompt("C:\\work")
	if err != nil {
		t.Fatal(err)
	}
	if prompt != "C:\\work $ " {
		t.Fatalf("prompt = %q", prompt)
	}
}
