package llm

import (
	"context"
	"fmt"
	"regexp"
	"strings"
	"unicode"
	"unicode/utf8"

	"sopflow/internal/render"
	"sopflow/internal/settings"
	"sopflow/internal/types"
)

// FakeProvider derives flows locally from outline-shaped SOP text for
// offline use and tests. Phase headings become sub-processes, numbered bold
// items become tasks and bullets become steps.
type FakeProvider struct{}

func NewFakeProvider() *FakeProvider { return &FakeProvider{} }

func (f *FakeProvider) Name() string        { return "offline" }
func (f *FakeProvider) SupportsFiles() bool { return true }

var (
	reBoldHeading = regexp.MustCompile(`^\*\*(.+?)\*\*:?$`)
	reMDHeading   = regexp.MustCompile(`^#{1,6}\s+(.+)$`)
	reNumbered    = regexp.MustCompile(`^\d+[.)]\s+(?:\*\*(.+?)\*\*|(.+))$`)
	reBullet      = regexp.MustCompile(`^[*\-•+]\s+(.+)$`)
	reField       = regexp.MustCompile(`(?i)^(version|objective|purpose|process owner)\s*:\s*(.+)$`)
)

func (f *FakeProvider) GenerateInitialFlow(_ context.Context, _ settings.AiConfig, src Source) (*types.ProcessFlow, error) {
	text := src.Text
	if src.File != nil && len(src.File.Data) > 0 {
		if !isTextual(src.File.MIMEType) {
			return nil, &DomainError{Msg: fmt.Sprintf("offline analysis cannot read %s documents", src.File.MIMEType)}
		}
		text = string(src.File.Data)
	}
	if strings.TrimSpace(text) == "" {
		return nil, ErrNoSource
	}
	return ParseOutline(text), nil
}

func isTextual(mime string) bool {
	mime = strings.ToLower(mime)
	return strings.HasPrefix(mime, "text/") || mime == "application/json" || mime == "application/markdown"
}

// ParseOutline builds a flow from outline text. Text without any recognised
// structure becomes one task whose steps are the non-empty lines.
func ParseOutline(text string) *types.ProcessFlow {
	flow := &types.ProcessFlow{Version: "1.0"}
	var sp *types.SubProcess
	var task *types.Task

	flushTask := func() {
		if task != nil && sp != nil && len(task.Steps) > 0 {
			sp.Tasks = append(sp.Tasks, *task)
		}
		task = nil
	}
	flushSub := func() {
		flushTask()
		if sp != nil && len(sp.Tasks) > 0 {
			flow.SubProcesses = append(flow.SubProcesses, *sp)
		}
		sp = nil
	}
	ensureSub := func() {
		if sp == nil {
			sp = &types.SubProcess{Name: "Main Process"}
		}
	}
	ensureTask := func() {
		ensureSub()
		if task == nil {
			task = &types.Task{Name: "General"}
		}
	}

	for _, line := range strings.Split(text, "\n") {
		line = strings.TrimSpace(line)
		if line == "" || line == "---" {
			continue
		}
		if flow.ProcessName == "" {
			flow.ProcessName = titleFromFirstLine(line)
			continue
		}
		if m := reField.FindStringSubmatch(line); m != nil {
			switch strings.ToLower(m[1]) {
			case "version":
				flow.Version = m[2]
			case "objective", "purpose":
				flow.Description = m[2]
			}
			continue
		}
		if m := reBoldHeading.FindStringSubmatch(line); m != nil {
			flushSub()
			sp = &types.SubProcess{Name: m[1]}
			continue
		}
		if m := reMDHeading.FindStringSubmatch(line); m != nil {
			flushSub()
			sp = &types.SubProcess{Name: strings.Trim(m[1], "* ")}
			continue
		}
		if m := reNumbered.FindStringSubmatch(line); m != nil {
			flushTask()
			ensureSub()
			name := m[1]
			if name == "" {
				name = m[2]
			}
			task = &types.Task{Name: strings.TrimSpace(name)}
			continue
		}
		body := line
		if m := reBullet.FindStringSubmatch(line); m != nil {
			body = m[1]
		}
		ensureTask()
		task.Steps = append(task.Steps, stepFromSentence(body))
	}
	flushSub()

	if flow.ProcessName == "" {
		flow.ProcessName = "Untitled Process"
	}
	if flow.Description == "" {
		flow.Description = "Process derived from " + flow.ProcessName + "."
	}
	assignIDs(flow)
	return flow
}

func titleFromFirstLine(line string) string {
	line = strings.Trim(line, "#* ")
	if i := strings.Index(line, ":"); i >= 0 && strings.Contains(strings.ToLower(line[:i]), "procedure") {
		if rest := strings.TrimSpace(line[i+1:]); rest != "" {
			return rest
		}
	}
	return line
}

func assignIDs(flow *types.ProcessFlow) {
	for i := range flow.SubProcesses {
		sp := &flow.SubProcesses[i]
		sp.ID = fmt.Sprintf("sp_%d", i+1)
		if sp.Description == "" {
			sp.Description = sp.Name
		}
		for j := range sp.Tasks {
			t := &sp.Tasks[j]
			t.ID = fmt.Sprintf("task_%d_%d", i+1, j+1)
			if t.Description == "" {
				t.Description = t.Name
			}
			for k := range t.Steps {
				t.Steps[k].ID = fmt.Sprintf("step_%d_%d_%d", i+1, j+1, k+1)
			}
		}
	}
}

func stepFromSentence(s string) types.Step {
	s = strings.TrimSpace(s)
	potential, suggestion := guessPotential(s)
	return types.Step{
		Name:                 shortName(s),
		Description:          s,
		AutomationPotential:  potential,
		AutomationSuggestion: suggestion,
		ResponsibleRole:      guessRole(s),
	}
}

func shortName(s string) string {
	words := strings.Fields(strings.TrimRight(s, ".!;:"))
	if len(words) > 6 {
		words = words[:6]
	}
	name := strings.Join(words, " ")
	if name == "" {
		return "New step"
	}
	r, size := utf8.DecodeRuneInString(name)
	return string(unicode.ToUpper(r)) + name[size:]
}

var potentialKeywords = []struct {
	level      types.AutomationPotential
	words      []string
	suggestion string
}{
	{types.PotentialHigh, []string{"automated", "automatic", "triggers", "notification", "ticket", "tracks", "system"}, "Trigger this from the system of record with an integration or workflow rule."},
	{types.PotentialMedium, []string{"create", "install", "print", "assign", "schedule", "set up", "sets up", "enter", "update"}, "Use templates or scripted provisioning to reduce manual effort."},
	{types.PotentialNone, []string{"greet", "introduc", "meet", "lunch", "welcome"}, ""},
	{types.PotentialLow, []string{"review", "verif", "sign", "train", "discuss", "approve"}, "Digital forms and checklists can track completion."},
}

func guessPotential(s string) (types.AutomationPotential, string) {
	lower := strings.ToLower(s)
	for _, k := range potentialKeywords {
		for _, w := range k.words {
			if strings.Contains(lower, w) {
				return k.level, k.suggestion
			}
		}
	}
	return types.PotentialLow, ""
}

// roleKeywords is ordered so the more specific phrase wins.
var roleKeywords = []struct{ phrase, role string }{
	{"hr coordinator", "HR Coordinator"},
	{"hiring manager", "Hiring Manager"},
	{"technician", "IT Technician"},
	{"buddy", "Hiring Manager"},
	{"manager", "Hiring Manager"},
	{"facilities", "Facilities"},
	{" it ", "IT"},
	{"hris", "HR Coordinator"},
	{" hr ", "HR Coordinator"},
	{"new hire", "New Employee"},
	{"employee", "New Employee"},
}

func guessRole(s string) string {
	lower := " " + strings.ToLower(s) + " "
	for _, r := range roleKeywords {
		if strings.Contains(lower, r.phrase) {
			return r.role
		}
	}
	return "Process Owner"
}

func (f *FakeProvider) RefineFlow(_ context.Context, _ settings.AiConfig, history []types.ChatMessage, flow *types.ProcessFlow) (*Refinement, error) {
	if flow == nil {
		return nil, ErrNoFlow
	}
	last := ""
	for i := len(history) - 1; i >= 0; i-- {
		if history[i].Role == types.RoleUser {
			last = history[i].Content
			break
		}
	}
	reply := fmt.Sprintf("Noted: %q. The offline assistant cannot edit the flow from chat, so it is unchanged. Which step should this apply to?", last)
	return &Refinement{UpdatedFlow: flow.Clone(), AIResponse: reply}, nil
}

func (f *FakeProvider) EnrichStep(_ context.Context, _ settings.AiConfig, flow *types.ProcessFlow, taskID, description string) (*types.ProcessFlow, error) {
	if flow == nil {
		return nil, ErrNoFlow
	}
	si, ti, ok := flow.TaskPosition(taskID)
	if !ok {
		return nil, &DomainError{Msg: fmt.Sprintf("task %q not found", taskID)}
	}
	out := flow.Clone()
	task := &out.SubProcesses[si-1].Tasks[ti-1]
	step := stepFromSentence(description)
	step.ID = types.NewIDAllocator(out).NextStepID(si, ti, len(task.Steps))
	task.Steps = append(task.Steps, step)
	return out, nil
}

func (f *FakeProvider) GenerateDocument(_ context.Context, _ settings.AiConfig, flow *types.ProcessFlow) (string, error) {
	if flow == nil {
		return "", ErrNoFlow
	}
	return render.Markdown(flow), nil
}
