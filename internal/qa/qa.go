// Package qa decides whether a comment is a question and composes answers
// from article texts with a language model.
package qa

// Article is the extracted text of one article linked from a post.
type Article struct {
	URL  string
	Text string
}
