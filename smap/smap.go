// Package smap builds the line maps relating generated Go lines back to template lines, and
// writes them in the SMAP text format.
package smap

import (
	"path"

	"github.com/Drolfothesgnir/pagec/reader"
)

// DefaultStratum is the name of the stratum holding template lines.
const DefaultStratum = "JSP"

// LineInfo maps InputCount input lines starting at InputStart to generated lines: input line
// InputStart+i maps to the OutputIncrement lines starting at OutputStart+i*OutputIncrement.
type LineInfo struct {
	InputStart      int
	InputCount      int
	OutputStart     int
	OutputIncrement int
	FileID          int
}

// File is an input file of a stratum.
type File struct {
	ID   int
	Name string
	Path string
}

// Builder collects line facts for one generated file.
type Builder struct {
	files []File
	ids   map[string]int
	lines []LineInfo
}

// NewBuilder creates an empty Builder.
func NewBuilder() *Builder {
	return &Builder{ids: map[string]int{}}
}

func (b *Builder) file(p string) int {
	if id, ok := b.ids[p]; ok {
		return id
	}
	id := len(b.files)
	b.files = append(b.files, File{ID: id, Name: path.Base(p), Path: p})
	b.ids[p] = id
	return id
}

// AddFact records that outCount generated lines starting at outLine belong to the line of m.
// Facts without a generated line come from nodes that produced no code and are dropped.
func (b *Builder) AddFact(m reader.Mark, outLine, outCount int) {
	if outLine <= 0 || outCount <= 0 || m.Line <= 0 {
		return
	}
	b.lines = append(b.lines, LineInfo{
		InputStart:      m.Line,
		InputCount:      1,
		OutputStart:     outLine,
		OutputIncrement: outCount,
		FileID:          b.file(m.File),
	})
}

// AddLines records that count input lines starting at the line of m map one to one to the
// generated lines starting at outLine.
func (b *Builder) AddLines(m reader.Mark, count, outLine int) {
	if outLine <= 0 || count <= 0 || m.Line <= 0 {
		return
	}
	b.lines = append(b.lines, LineInfo{
		InputStart:      m.Line,
		InputCount:      count,
		OutputStart:     outLine,
		OutputIncrement: 1,
		FileID:          b.file(m.File),
	})
}

// Lines returns the collected entries.
func (b *Builder) Lines() []LineInfo {
	return b.lines
}

// Optimize merges adjacent entries. Entries mapping the same input line to contiguous output
// are merged first; entries of consecutive input lines with equal increments are merged after.
func (b *Builder) Optimize() {
	b.lines = mergeSameLine(b.lines)
	b.lines = mergeConsecutive(b.lines)
}

func mergeSameLine(lines []LineInfo) []LineInfo {
	for i := 0; i+1 < len(lines); {
		cur, next := &lines[i], lines[i+1]
		if cur.FileID == next.FileID &&
			cur.InputStart == next.InputStart &&
			cur.InputCount == 1 && next.InputCount == 1 &&
			next.OutputStart == cur.OutputStart+cur.OutputIncrement {
			cur.OutputIncrement = next.OutputStart - cur.OutputStart + next.OutputIncrement
			lines = append(lines[:i+1], lines[i+2:]...)
			continue
		}
		i++
	}
	return lines
}

func mergeConsecutive(lines []LineInfo) []LineInfo {
	for i := 0; i+1 < len(lines); {
		cur, next := &lines[i], lines[i+1]
		if cur.FileID == next.FileID &&
			next.InputStart == cur.InputStart+cur.InputCount &&
			next.OutputIncrement == cur.OutputIncrement &&
			next.OutputStart == cur.OutputStart+cur.InputCount*cur.OutputIncrement {
			cur.InputCount += next.InputCount
			lines = append(lines[:i+1], lines[i+2:]...)
			continue
		}
		i++
	}
	return lines
}

// Stratum returns the collected files and lines as a stratum.
func (b *Builder) Stratum(name string) *Stratum {
	return &Stratum{
		Name:  name,
		Files: append([]File(nil), b.files...),
		Lines: append([]LineInfo(nil), b.lines...),
	}
}
