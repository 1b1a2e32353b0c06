// Package summarize turns a transcript into summary text by calling a
// Summarizer (satisfied by llm.Client), chunking the transcript with overlap when it exceeds a
// configured size and merge-summarizing the chunk summaries.
//
// The chunk/overlap/merge shape is loosely inspired by the
// split-then-merge structure of original_source/app/core/split, adapted
// from LLM-assisted subtitle-line segmentation to plain character-offset
// chunking of a transcript.
package summarize
