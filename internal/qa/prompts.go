package qa

// classifierPrompt asks the model for a strict JSON verdict on whether the
// comment is a question. The comment text is appended after the marker.
const classifierPrompt = `Decide whether the following text is a question addressed to the readers or the author of a news post.
Reply with JSON only, using exactly these keys:
  "is_question": boolean
  "confidence": number between 0 and 1

Text: `

// synthesizerPrompt is the answer instruction. Parameters: the question, then
// the concatenated article sections.
const synthesizerPrompt = `Write a short answer (no more than 300 words) to the question using only the articles provided.

Question: %s

Articles:%s

The answer must be clear and informative, must name the number of the article it relies on, and must be written in the language of the question.`

// articleSectionHeader precedes the text of the N-th article (1-based).
const articleSectionHeader = "\n\n--- Article %d ---\n"
