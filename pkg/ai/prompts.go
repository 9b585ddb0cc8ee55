package ai

const systemPrompt = "You are a meeting analyst. Reply with a single valid JSON object and nothing else."

const analysisPrompt = `Analyze this meeting transcript.

TRANSCRIPT:
%s

INSTRUCTIONS:
1. Write a brief summary of the meeting
2. List the key decisions and the action items as short sentences
3. Build a timeline of significant events with realistic timestamps spread over the meeting
4. Event types: "discussion", "decision", "task_assignment", "question", "action_item", "presentation"
5. Extract every actionable task. Use "Unassigned" when nobody owns it, a YYYY-MM-DD deadline only when one was mentioned, and priority "high", "medium" or "low"

RETURN FORMAT (JSON):
{
  "summary": "Brief overall meeting summary",
  "key_decisions": ["Decision 1"],
  "action_items": ["Action 1"],
  "timeline": [
    {
      "timestamp": "00:30",
      "timestamp_minutes": 0.5,
      "event_type": "discussion",
      "title": "Meeting introduction",
      "content": "Team outlined the agenda",
      "participants": ["Speaker A"]
    }
  ],
  "tasks": [
    {
      "title": "Prepare market analysis report",
      "description": "What needs to be done",
      "assigned_to": "Speaker B",
      "deadline": "2024-01-25",
      "priority": "high"
    }
  ]
}`

const timelinePrompt = `Analyze this meeting transcript and create a minute-by-minute timeline.

TRANSCRIPT:
%s

INSTRUCTIONS:
1. Create entries for significant events, discussions, decisions and action items
2. Estimate timestamps from the conversation flow
3. Event types: "discussion", "decision", "task_assignment", "question", "action_item", "presentation"

RETURN FORMAT (JSON):
{
  "timeline": [
    {
      "timestamp": "00:30",
      "timestamp_minutes": 0.5,
      "event_type": "discussion",
      "title": "Meeting introduction",
      "content": "Team outlined the agenda",
      "participants": ["Speaker A"]
    }
  ]
}`

const tasksPrompt = `Analyze this meeting transcript and extract all actionable tasks.

TRANSCRIPT:
%s
%s
INSTRUCTIONS:
1. Include explicit tasks and implied follow-ups
2. Use "Unassigned" when nobody owns a task
3. Give a YYYY-MM-DD deadline only when one was mentioned
4. Priority is "high", "medium" or "low"

RETURN FORMAT (JSON):
{
  "tasks": [
    {
      "title": "Prepare market analysis report",
      "description": "What needs to be done",
      "assigned_to": "Speaker B",
      "deadline": "2024-01-25",
      "priority": "high"
    }
  ]
}`
