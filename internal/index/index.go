// Package index publishes the static download page of a repository and makes
// the repository's own bootstrap archive reachable from the top level.
package index

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"html/template"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/oshokin/repo-generator/internal/domain/addon"
	"github.com/oshokin/repo-generator/internal/fsutil"
	"github.com/oshokin/repo-generator/internal/logger"
)

// Filename is the generated page.
const Filename = "index.html"

//nolint:gochecknoglobals // Parsed once, read-only afterwards.
var page = template.Must(template.New(Filename).Parse(
	"<!DOCTYPE html>\n{{range .}}<a href=\"{{.Href}}\">{{.Name}}</a>\n{{end}}"))

// link is one archive on the page.
type link struct {
	Href string
	Name string
}

// CopyRepositoryArchives copies every archive found directly inside a
// "repository.*" directory anywhere under outputDir to outputDir itself.
// Copies whose content is already in place are skipped. It returns the copied file names.
func CopyRepositoryArchives(ctx context.Context, outputDir string) ([]string, error) {
	var (
		copied []string
		errs   []error
	)

	walkErr := filepath.WalkDir(outputDir, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}

		if !d.IsDir() || path == outputDir || !strings.HasPrefix(d.Name(), addon.RepositoryPrefix) {
			return nil
		}

		entries, err := os.ReadDir(path)
		if err != nil {
			errs = append(errs, err)
			return nil
		}

		for _, e := range entries {
			if !e.Type().IsRegular() || !strings.HasSuffix(e.Name(), addon.ArchiveSuffix) {
				continue
			}

			src := filepath.Join(path, e.Name())
			dst := filepath.Join(outputDir, e.Name())

			if fsutil.SameContent(src, dst) {
				continue
			}

			if err = fsutil.CopyFile(src, dst); err != nil {
				errs = append(errs, fmt.Errorf("copy %s: %w", e.Name(), err))
				continue
			}

			logger.InfoKV(ctx, "Repository archive copied to top level", "archive", e.Name())
			copied = append(copied, e.Name())
		}

		return nil
	})
	if walkErr != nil {
		errs = append(errs, walkErr)
	}

	return copied, errors.Join(errs...)
}

// Publish rewrites outputDir/index.html with a link to every archive under
// outputDir. Links are relative to outputDir; labels are file names.
// It returns the linked relative paths.
func Publish(ctx context.Context, outputDir string) ([]string, error) {
	archives, err := fsutil.FindFilesByExtension(outputDir, addon.ArchiveSuffix)
	if err != nil {
		return nil, fmt.Errorf("find archives: %w", err)
	}

	links := make([]link, 0, len(archives))
	for _, path := range archives {
		rel, relErr := filepath.Rel(outputDir, path)
		if relErr != nil {
			return nil, relErr
		}

		links = append(links, link{Href: filepath.ToSlash(rel), Name: filepath.Base(path)})
	}

	sort.Slice(links, func(i, j int) bool { return links[i].Href < links[j].Href })

	var buf bytes.Buffer
	if err = page.Execute(&buf, links); err != nil {
		return nil, fmt.Errorf("render index: %w", err)
	}

	if err = fsutil.WriteFile(filepath.Join(outputDir, Filename), buf.Bytes(), fsutil.DefaultFileMode); err != nil {
		return nil, fmt.Errorf("write index: %w", err)
	}

	hrefs := make([]string, len(links))
	for i, l := range links {
		hrefs[i] = l.Href
	}

	logger.InfoKV(ctx, "Index published", "archives", len(hrefs))

	return hrefs, nil
}
