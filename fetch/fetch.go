// Package fetch copies the test plan and dataset from their content source
// into local working storage, and selects exactly one plan file and one
// dataset file deterministically.
package fetch

import (
	"context"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"os/exec"
	"path/filepath"
	"sort"
	"strings"
)

var (
	// ErrNoTestPlanFound is returned when the fetched source contains no plan file.
	ErrNoTestPlanFound = errors.New("no test plan found")
	// ErrNoDatasetFound is returned when the fetched source contains no dataset file.
	ErrNoDatasetFound = errors.New("no dataset found")
)

// File extensions the selector recognizes.
const (
	PlanExt    = ".jmx"
	DatasetExt = ".csv"
)

// Source fetches a test plan repository into a local directory. The content
// is immutable after fetch.
type Source interface {
	Fetch(ctx context.Context, destDir string) error
}

// Resolve picks a Source implementation from the shape of the reference:
// an Azure Blob container URL, a git URL, or a local directory.
func Resolve(ref string) Source {
	switch {
	case strings.Contains(ref, ".blob.core.windows.net"):
		return &BlobSource{ContainerURL: ref}
	case strings.HasPrefix(ref, "http://"), strings.HasPrefix(ref, "https://"),
		strings.HasPrefix(ref, "git@"), strings.HasSuffix(ref, ".git"):
		return &GitSource{URL: ref}
	default:
		return &DirSource{Path: ref}
	}
}

// GitSource clones a test plan repository. The clone is shallow: the run
// only needs the current tree, never history.
type GitSource struct {
	URL string
}

func (s *GitSource) Fetch(ctx context.Context, destDir string) error {
	if err := os.MkdirAll(destDir, 0o755); err != nil {
		return fmt.Errorf("creating work dir: %w", err)
	}

	cmd := exec.CommandContext(ctx, "git", "clone", "--depth", "1", s.URL, destDir)
	out, err := cmd.CombinedOutput()
	if err != nil {
		return fmt.Errorf("git clone %s: %w: %s", s.URL, err, strings.TrimSpace(string(out)))
	}
	return nil
}

// DirSource copies a local directory tree, used for pre-mounted plan volumes
// and in tests.
type DirSource struct {
	Path string
}

func (s *DirSource) Fetch(ctx context.Context, destDir string) error {
	return filepath.WalkDir(s.Path, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if ctx.Err() != nil {
			return ctx.Err()
		}

		rel, err := filepath.Rel(s.Path, path)
		if err != nil {
			return err
		}
		target := filepath.Join(destDir, rel)

		if d.IsDir() {
			return os.MkdirAll(target, 0o755)
		}
		return copyFile(path, target)
	})
}

func copyFile(src, dst string) error {
	in, err := os.Open(src)
	if err != nil {
		return err
	}
	defer in.Close()

	out, err := os.Create(dst)
	if err != nil {
		return err
	}
	if _, err := io.Copy(out, in); err != nil {
		out.Close()
		return err
	}
	return out.Close()
}

// SelectPlan returns the test plan file for the run: the lexicographically
// first plan file under dir. The ordering is a contract, not an incidental
// filesystem listing order.
func SelectPlan(dir string) (string, error) {
	path, err := selectByExt(dir, PlanExt)
	if err != nil {
		return "", fmt.Errorf("%w: under %s", ErrNoTestPlanFound, dir)
	}
	return path, nil
}

// SelectDataset returns the dataset file for the run, chosen the same way.
func SelectDataset(dir string) (string, error) {
	path, err := selectByExt(dir, DatasetExt)
	if err != nil {
		return "", fmt.Errorf("%w: under %s", ErrNoDatasetFound, dir)
	}
	return path, nil
}

func selectByExt(dir, ext string) (string, error) {
	var matches []string
	err := filepath.WalkDir(dir, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() {
			// Clone metadata is not plan content.
			if d.Name() == ".git" {
				return filepath.SkipDir
			}
			return nil
		}
		if strings.EqualFold(filepath.Ext(path), ext) {
			matches = append(matches, path)
		}
		return nil
	})
	if err != nil {
		return "", err
	}
	if len(matches) == 0 {
		return "", fmt.Errorf("no %s files", ext)
	}

	sort.Strings(matches)
	return matches[0], nil
}
