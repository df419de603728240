package domain

import (
	"context"
	"fmt"
	"time"
)

// Document is the single text body a room collaborates on. Every accepted
// edit replaces Content wholesale; the most recent write wins and nothing
// is merged or versioned.
type Document struct {
	RoomID         string    `json:"roomId"`
	Content        string    `json:"content"`
	LastModified   time.Time `json:"lastModified"`
	LastEditorName string    `json:"lastEditorName,omitempty"`
}

type DocumentRepository interface {
	// GetOrCreate returns the room's document, seeding a fresh one from the
	// default template on first join. It never fails.
	GetOrCreate(ctx context.Context, roomID string) (*Document, error)

	// Replace overwrites the document body. The second return value reports
	// whether the write was stored; writes to rooms that were never joined
	// are dropped.
	Replace(ctx context.Context, roomID, content, editorName string) (*Document, bool)

	// Get returns the document without creating one.
	Get(ctx context.Context, roomID string) (*Document, error)

	// EvictIdle removes documents for rooms that are idle and no longer in
	// the active set, returning how many were evicted.
	EvictIdle(active map[string]struct{}) int

	Len() int
}

const defaultTemplate = `\documentclass{article}
\usepackage[utf8]{inputenc}
\title{Collaborative Document - %s}
\author{FreeTeX Team}
\date{\today}

\begin{document}

\maketitle

\section{Introduction}
Welcome to this collaborative editor!
Several people can edit this document at the same time.

\section{Collaborative Section}
%% Start typing here

\begin{itemize}
\item First point
\item Second point
\end{itemize}

\section{Mathematical Formulas}
Here is an equation: $E = mc^2$

\[
\sum_{n=1}^{\infty} \frac{1}{n^2} = \frac{\pi^2}{6}
\]

\end{document}`

// NewDocument seeds a document for a freshly joined room, with the room ID
// interpolated into the title.
func NewDocument(roomID string) *Document {
	return &Document{
		RoomID:       roomID,
		Content:      fmt.Sprintf(defaultTemplate, roomID),
		LastModified: time.Now(),
	}
}
