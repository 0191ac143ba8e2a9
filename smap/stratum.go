package smap

import (
	"strconv"
	"strings"
)

// Stratum is one view of the generated file's lines.
type Stratum struct {
	Name  string
	Files []File
	Lines []LineInfo
}

// SMAP is the line map of one generated file.
type SMAP struct {
	// OutputFile is the name of the generated file.
	OutputFile string

	// Default is the name of the default stratum.
	Default string

	Strata []*Stratum
}

// New creates the map of a generated file with a single default stratum.
func New(outputFile string, s *Stratum) *SMAP {
	return &SMAP{OutputFile: outputFile, Default: s.Name, Strata: []*Stratum{s}}
}

// String serialises the map.
//
//	SMAP
//	index_jsp.go
//	JSP
//	*S JSP
//	*F
//	+ 0 index.jsp
//	/index.jsp
//	*L
//	1#0,3:12
//	*E
func (m *SMAP) String() string {
	var b strings.Builder
	b.WriteString("SMAP\n")
	b.WriteString(m.OutputFile + "\n")
	b.WriteString(m.Default + "\n")
	for _, s := range m.Strata {
		s.write(&b)
	}
	b.WriteString("*E\n")
	return b.String()
}

func (s *Stratum) write(b *strings.Builder) {
	b.WriteString("*S " + s.Name + "\n")

	b.WriteString("*F\n")
	for _, f := range s.Files {
		b.WriteString("+ " + strconv.Itoa(f.ID) + " " + f.Name + "\n")
		b.WriteString(f.Path + "\n")
	}

	b.WriteString("*L\n")
	file := -1
	for _, l := range s.Lines {
		b.WriteString(strconv.Itoa(l.InputStart))
		if l.FileID != file {
			b.WriteString("#" + strconv.Itoa(l.FileID))
			file = l.FileID
		}
		if l.InputCount != 1 {
			b.WriteString("," + strconv.Itoa(l.InputCount))
		}
		b.WriteString(":" + strconv.Itoa(l.OutputStart))
		if l.OutputIncrement != 1 {
			b.WriteString("," + strconv.Itoa(l.OutputIncrement))
		}
		b.WriteByte('\n')
	}
}
