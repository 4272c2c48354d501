// Package workflow defines the persisted state model for a draftflow
// session and the static transition table that governs how a session
// moves through the content-generation pipeline.
//
// A session walks an ordered pipeline of phases (plan, generate, review,
// revise), each split into a prompt stage and a response stage. Every
// stage boundary is gated by an approval decision. The workflow package
// holds only data and pure lookups; all side effects live in the
// orchestrator package.
package workflow
