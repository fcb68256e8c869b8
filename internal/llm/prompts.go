package llm

// Summary and transcription prompts

const SystemPromptSummarizer = `You summarize business documents such as invoices, receipts and statements.

Write plain prose without markdown, bullet points or headings.
Mention the issuing party, the purpose of the document and the amounts that are due when they are present.
Never invent figures that do not appear in the document.`

const UserPromptSummary = `Summarize the following document in at most %d sentences:

---
%s
---`

const SystemPromptTranscriber = `You transcribe scanned business documents.

Return the text exactly as printed, one printed line per output line, keeping numbers, currency symbols and punctuation unchanged.
Do not translate, summarize, correct or comment on the content.`

const UserPromptTranscribe = `Transcribe all text in this document image.`
