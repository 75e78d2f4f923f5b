package llm

import (
	"bytes"
	"fmt"
	"strings"

	"sopflow/internal/schema"
	"sopflow/internal/types"
	"sopflow/internal/util/jsonutil"
	"sopflow/internal/util/textutil"
)

// prompt is one system + user message pair. Gemini sends System as a
// system instruction; the chat adapters send it as the first message.
type prompt struct {
	System string
	User   string
}

const (
	analystPersona = "You are a business process analyst. Your task is to analyze the provided document and convert it into a structured JSON object that adheres to the provided JSON schema. Your entire response must be a single, valid JSON object, with no other text."

	refinePersona = `You are a helpful and brilliant business process analyst. Your goal is to refine a JSON representation of a business process based on a conversation with a Subject Matter Expert (SME).
- You will be given the current process flow as a JSON object and the recent chat history.
- Analyze the user's latest message in the context of the chat history and the current process flow.
- If the user provides new information or a correction, update the JSON object accordingly. Ensure you return the *entire*, valid JSON object.
- If the user's request is ambiguous or you identify a gap, ask a specific, targeted clarifying question.
- Always provide a conversational response to the SME to confirm your changes or to ask your question.
- Do not change any 'id' fields. You may add new items with new unique ids.
- Your final output must be a single JSON object with two keys: "updatedFlow" (the complete, modified process flow) and "aiResponse" (your text response to the user).`

	enrichPersona = "You are a business process analyst AI. Your task is to update a process flow JSON object by adding a new step to a specific task and returning the complete, updated flow. Your entire response must be a single, valid JSON object."

	writerPersona = "You are an expert technical writer."

	analyzeInstruction = "Analyze the provided Standard Operating Procedure (SOP) document and convert it into a structured JSON object representing the process flow. Identify all sub-processes, tasks, and individual steps. For each step, determine the responsible role and assess its potential for automation."

	analyzeFileInstruction = "Analyze the provided document and convert it into a structured JSON object representing the process flow. Identify all sub-processes, tasks, and individual steps. For each step, determine the responsible role and assess its potential for automation. The document can be of various formats like TXT, PDF, or DOCX. Extract the content and perform the analysis."

	documentInstruction = "Based on the following JSON process flow, generate a comprehensive, well-structured Standard Operating Procedure (SOP) document in Markdown format. The document should be professional, clear, and easy to follow. Include all details such as process name, description, sub-processes, tasks, steps, responsible roles, and automation notes."
)

// withSchema controls whether the user message carries the JSON schema.
// Providers that enforce a response schema natively leave it out.
type withSchema bool

func analyzePrompt(text string, embed withSchema) prompt {
	var buf bytes.Buffer
	writeSection(&buf, "TASK", analyzeInstruction)
	if embed {
		writeSection(&buf, "JSON SCHEMA", fence(schema.ProcessFlowForPrompt()))
	}
	writeSection(&buf, "DOCUMENT", delimit(textutil.CleanDocument(text)))
	buf.WriteString("Generate the JSON object now.")
	return prompt{System: analystPersona, User: buf.String()}
}

func analyzeFilePrompt() prompt {
	return prompt{System: analystPersona, User: analyzeFileInstruction}
}

func refinePrompt(history []types.ChatMessage, flow *types.ProcessFlow, embed withSchema) prompt {
	var buf bytes.Buffer
	if embed {
		writeSection(&buf, "OUTPUT SCHEMA", fence(schema.ChatRefinementForPrompt()))
	}
	writeSection(&buf, "CURRENT PROCESS FLOW", delimit(jsonutil.IndentString(flow)))
	writeSection(&buf, "CHAT HISTORY", delimit(FormatTranscript(history)))
	buf.WriteString("Based on the last user message, update the process flow JSON and provide a response to the user.")
	return prompt{System: refinePersona, User: buf.String()}
}

func enrichPrompt(flow *types.ProcessFlow, taskID, description string, embed withSchema) prompt {
	var buf bytes.Buffer
	if embed {
		writeSection(&buf, "JSON SCHEMA", fence(schema.ProcessFlowForPrompt()))
	}
	writeSection(&buf, "CURRENT PROCESS FLOW", delimit(jsonutil.IndentString(flow)))
	writeSection(&buf, "TASK TO MODIFY", fmt.Sprintf("- Task ID: %q", taskID))
	writeSection(&buf, "NEW STEP", fmt.Sprintf("- Step Description: %q", description))
	writeSection(&buf, "INSTRUCTIONS", strings.Join([]string{
		"1. Create a complete JSON object for the new step. Infer the 'name' (a short title), 'responsible_role', and 'automation_potential' based on the description and the context of the other steps in the task.",
		"2. Generate a new unique ID for the step (e.g., if the last step was 'step_x_y_z', the new one could be 'step_x_y_{z+1}').",
		fmt.Sprintf("3. Add this new step object to the end of the \"steps\" array within the task that has the ID %q.", taskID),
		"4. Return the *entire*, updated JSON object for the process flow. Do not change any other part of the process flow.",
	}, "\n"))
	return prompt{System: enrichPersona, User: buf.String()}
}

func documentPrompt(flow *types.ProcessFlow) prompt {
	var buf bytes.Buffer
	writeSection(&buf, "TASK", documentInstruction)
	writeSection(&buf, "PROCESS FLOW", delimit(jsonutil.IndentString(flow)))
	return prompt{System: writerPersona, User: strings.TrimSpace(buf.String())}
}

// FormatTranscript renders history as one "role: content" line per message.
func FormatTranscript(history []types.ChatMessage) string {
	lines := make([]string, 0, len(history))
	for _, m := range history {
		lines = append(lines, string(m.Role)+": "+m.Content)
	}
	return strings.Join(lines, "\n")
}

func writeSection(buf *bytes.Buffer, title, body string) {
	if strings.TrimSpace(body) == "" {
		return
	}
	buf.WriteString("[")
	buf.WriteString(title)
	buf.WriteString("]\n")
	buf.WriteString(body)
	if !strings.HasSuffix(body, "\n") {
		buf.WriteString("\n")
	}
	buf.WriteString("\n")
}

func fence(v any) string {
	return "```json\n" + jsonutil.IndentString(v) + "\n```"
}

func delimit(s string) string {
	return "---\n" + s + "\n---"
}
