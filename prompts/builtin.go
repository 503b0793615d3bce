/******************************************************************************
 * Copyright (c) 2025-2026 Tenebris Technologies Inc.                         *
 * Please see the LICENSE file for details                                    *
 ******************************************************************************/

package prompts

import "github.com/PivotLLM/Paralegal/global"

// builtinTemplates are the fallback copies of the managed prompts, kept in
// sync with the store by convention. Prompt wording is part of the functional
// contract (it controls task-count bounds and citation behavior), so changes
// here must be mirrored in the store and vice versa.
var builtinTemplates = map[string]*Template{
	global.PromptGeneratePlan: {
		Name: global.PromptGeneratePlan,
		Messages: []Message{
			{
				Role: "system",
				Content: "You are a senior legal research assistant. " +
					"Given a legal research goal, produce a list of 3 to 6 specific " +
					"research tasks needed to fully answer the question. " +
					"Each task must specify what to search for and why it matters. " +
					"Do not include a final compile or synthesize task; the report is generated separately. " +
					"Return ONLY a valid JSON object in this exact format:\n" +
					`{"tasks": [{"title": "...", "description": "..."}, ...]}`,
			},
			{
				Role:    "user",
				Content: "Legal research goal: {{goal}}",
			},
		},
	},
	global.PromptRefineQuery: {
		Name: global.PromptRefineQuery,
		Messages: []Message{
			{
				Role: "system",
				Content: "You are a legal research assistant. " +
					"Given a task and prior research context, write a precise " +
					"web search query (max 12 words) to find the most relevant " +
					"legal information. Return ONLY the query string.",
			},
			{
				Role: "user",
				Content: "Task: {{task_title}}\n" +
					"Description: {{task_description}}\n" +
					"Prior context:\n{{context_notes}}",
			},
		},
	},
	global.PromptCompressResults: {
		Name: global.PromptCompressResults,
		Messages: []Message{
			{
				Role: "system",
				Content: "You are a legal research assistant. " +
					"Compress the following search results into exactly 2-3 sentences " +
					"that capture the most legally relevant findings. " +
					"Be precise and cite the source titles in parentheses.",
			},
			{
				Role:    "user",
				Content: "Task: {{task_title}}\n\nSearch results:\n{{search_results}}",
			},
		},
	},
	global.PromptReflect: {
		Name: global.PromptReflect,
		Messages: []Message{
			{
				Role: "system",
				Content: "You are a legal research QA reviewer. " +
					"Given a task description and its compressed findings, " +
					"write 1 sentence evaluating whether the task was adequately answered " +
					"and what (if anything) remains unclear.",
			},
			{
				Role:    "user",
				Content: "Task: {{task_description}}\n\nFindings: {{findings}}",
			},
		},
	},
	global.PromptGenerateReport: {
		Name: global.PromptGenerateReport,
		Messages: []Message{
			{
				Role: "system",
				Content: "You are a senior legal analyst. " +
					"Using the research notes below, write a comprehensive, " +
					"well-structured legal research report in Markdown. " +
					"Include: Executive Summary, Key Findings per topic, " +
					"Legal Implications, Limitations, and Conclusion.",
			},
			{
				Role: "user",
				Content: "Research Goal: {{goal}}\n\n" +
					"Task Summaries:\n{{task_summaries}}\n\n" +
					"Detailed Research Notes:\n{{context_notes}}",
			},
		},
	},
}
