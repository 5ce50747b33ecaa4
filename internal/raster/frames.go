package raster

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"strings"

	"github.com/maruel/natural"
)

const (
	framePrefix = "frame_"
	frameExt    = ".png"
	minDigits   = 5
)

// Sequence addresses the frame files of one run. Names are zero-padded to a
// fixed width so lexical order is temporal order.
type Sequence struct {
	Dir    string
	Count  int
	Digits int
}

func NewSequence(dir string, count int) Sequence {
	digits := minDigits
	if count > 0 {
		if n := len(strconv.Itoa(count - 1)); n > digits {
			digits = n
		}
	}
	return Sequence{Dir: dir, Count: count, Digits: digits}
}

func (s Sequence) Name(i int) string {
	return fmt.Sprintf("%s%0*d%s", framePrefix, s.Digits, i, frameExt)
}

func (s Sequence) Path(i int) string {
	return filepath.Join(s.Dir, s.Name(i))
}

// Pattern is the printf-style path understood by ffmpeg's image2 demuxer.
func (s Sequence) Pattern() string {
	return filepath.Join(s.Dir, fmt.Sprintf("%s%%0%dd%s", framePrefix, s.Digits, frameExt))
}

// Paths lists every frame path in temporal order.
func (s Sequence) Paths() []string {
	paths := make([]string, s.Count)
	for i := range paths {
		paths[i] = s.Path(i)
	}
	return paths
}

// ListFrames returns the non-empty frame files present in dir, in order.
func ListFrames(dir string) ([]string, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, err
	}
	var names []string
	for _, e := range entries {
		name := e.Name()
		if e.IsDir() || !strings.HasPrefix(name, framePrefix) || !strings.HasSuffix(name, frameExt) {
			continue
		}
		info, err := e.Info()
		if err != nil || info.Size() == 0 {
			continue
		}
		names = append(names, name)
	}
	sort.SliceStable(names, func(i, j int) bool { return natural.Less(names[i], names[j]) })

	paths := make([]string, len(names))
	for i, n := range names {
		paths[i] = filepath.Join(dir, n)
	}
	return paths, nil
}
