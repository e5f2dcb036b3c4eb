package pipeline

import (
	"ansible-matrix/internal/matrix"
	"fmt"
	"io"

	"github.com/jedib0t/go-pretty/v6/table"
)

type Format string

const (
	FormatTable Format = "table"
	FormatPlain Format = "plain"
)

func (f Format) Validate() error {
	switch f {
	case FormatTable, FormatPlain, "":
		return nil
	}
	return fmt.Errorf("unknown output format %q", string(f))
}

func newTable(out io.Writer) table.Writer {
	t := table.NewWriter()
	t.SetStyle(table.StyleRounded)
	t.SetOutputMirror(out)
	return t
}

func RenderPairs(out io.Writer, pairs []matrix.VersionPair, format Format) error {
	if err := format.Validate(); err != nil {
		return err
	}

	if format == FormatPlain {
		_, err := fmt.Fprintln(out, "Combined version pairs:")
		if err != nil {
			return err
		}
		for _, p := range pairs {
			_, err = fmt.Fprintf(out, "ansible=%s python=%s tag=%s\n", p.Ansible, p.Python, p.Tag)
			if err != nil {
				return err
			}
		}
		return nil
	}

	t := newTable(out)
	t.SetTitle("Combined version pairs")
	t.AppendHeader(table.Row{"Ansible", "Python", "Tag"})
	for _, p := range pairs {
		t.AppendRow(table.Row{p.Ansible, p.Python, p.Tag})
	}
	t.Render()
	return nil
}

func RenderReleases(out io.Writer, releases *matrix.ReleaseMap, format Format) error {
	if err := format.Validate(); err != nil {
		return err
	}

	if format == FormatPlain {
		_, err := fmt.Fprintln(out, "Community and core versions:")
		if err != nil {
			return err
		}
		var werr error
		releases.Each(func(release, core string) {
			if werr != nil {
				return
			}
			_, werr = fmt.Fprintf(out, "%s : %s\n", release, core)
		})
		return werr
	}

	t := newTable(out)
	t.SetTitle("Community and core versions")
	t.AppendHeader(table.Row{"Ansible", "Core"})
	releases.Each(func(release, core string) {
		t.AppendRow(table.Row{release, core})
	})
	t.Render()
	return nil
}
