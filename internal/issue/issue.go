// SPDX-License-Identifier: MPL-2.0

package issue

import (
	"maps"
	"slices"
	"strings"

	"github.com/charmbracelet/glamour"
)

// Id identifies a catalog entry.
type Id int

const (
	BoardConfigInvalidId Id = iota + 1
	SketchConfigInvalidId
	SketchNotFoundId
	ResourceDirNotFoundId
	CMakeNotFoundId
	BuildFailedId
	SegmentCreateFailedId
	SketchStartFailedId
	SketchCrashedId
	ConfigLoadFailedId
	PermissionDeniedId
)

type (
	// MarkdownMsg is guide text rendered with glamour.
	MarkdownMsg string

	// HttpLink is a documentation URL.
	HttpLink string

	// Issue is a Markdown guide for a class of failure.
	Issue struct {
		id       Id
		mdMsg    MarkdownMsg
		docLinks []HttpLink
		extLinks []HttpLink
	}
)

func (i *Issue) Id() Id { return i.id }

func (i *Issue) MarkdownMsg() MarkdownMsg { return i.mdMsg }

func (i *Issue) DocLinks() []HttpLink { return slices.Clone(i.docLinks) }

func (i *Issue) ExtLinks() []HttpLink { return slices.Clone(i.extLinks) }

// Render renders the guide with the glamour style at stylePath ("dark",
// "light", "notty" or a JSON file).
func (i *Issue) Render(stylePath string) (string, error) {
	var md strings.Builder
	md.WriteString(string(i.mdMsg))
	if len(i.docLinks) > 0 || len(i.extLinks) > 0 {
		md.WriteString("\n\n## See also\n")
		for _, link := range slices.Concat(i.docLinks, i.extLinks) {
			md.WriteString("- <" + string(link) + ">\n")
		}
	}
	return render(md.String(), stylePath)
}

var (
	render = glamour.Render

	boardConfigInvalidIssue = &Issue{
		id: BoardConfigInvalidId,
		mdMsg: `
# The board descriptor is invalid

The runner checks the descriptor before it touches shared memory, so nothing
was created.

## Things you can try
- Buffer lengths must be between 1 and 65535.
- Every SD card needs a non-blank ` + "`root_dir`" + `.
- Frame buffer keys must be unique, directions are ` + "`in`" + ` or ` + "`out`" + `.
- Print the parsed model:
~~~
$ smce inspect --board ./board.cue
~~~`,
		extLinks: []HttpLink{"https://cuelang.org/docs/"},
	}

	sketchConfigInvalidIssue = &Issue{
		id: SketchConfigInvalidId,
		mdMsg: `
# The library list is invalid

Each library is exactly one of:
~~~cue
{kind: "remote", name: "Servo", version: "1.2.1"}
{kind: "local", root_dir: "./libs/MyLib", patch_for: "Servo"}
{kind: "freestanding", name: "Wire"}
~~~`,
	}

	sketchNotFoundIssue = &Issue{
		id: SketchNotFoundId,
		mdMsg: `
# Sketch not found

The sketch path must name an existing ` + "`.ino`" + ` file or a sketch directory.`,
	}

	resourceDirNotFoundIssue = &Issue{
		id: ResourceDirNotFoundId,
		mdMsg: `
# SMCE resources not found

The build needs the SMCE resource tree, containing
` + "`RtResources/SMCE/share/Scripts/ConfigureSketch.cmake`" + `.

## Things you can try
- Set ` + "`resource_dir`" + ` in your config file.
- Or pass it for one run:
~~~
$ smce build --resource-dir /opt/smce ./Blink
~~~`,
	}

	cmakeNotFoundIssue = &Issue{
		id: CMakeNotFoundId,
		mdMsg: `
# CMake not found

Sketches are compiled by CMake 3.16 or newer.

## Things you can try
- Install CMake and make sure it is on your PATH.
- Or set ` + "`cmake_path`" + ` in your config file.`,
		extLinks: []HttpLink{"https://cmake.org/download/"},
	}

	buildFailedIssue = &Issue{
		id: BuildFailedId,
		mdMsg: `
# The sketch did not build

The full tool output is in the build log printed above.

## Things you can try
- Check that the FQBN matches a supported board.
- Check library names and versions in your library list.
- Rebuild with ` + "`--verbose`" + ` to see every step.`,
	}

	segmentCreateFailedIssue = &Issue{
		id: SegmentCreateFailedId,
		mdMsg: `
# Could not create the board segment

Each runner owns a named shared memory segment ` + "`SMCE-Runner-<id>`" + `.

## Things you can try
- A segment with that name still exists from a crashed run: remove it from
  ` + "`/dev/shm`" + ` and retry.
- Check that ` + "`/dev/shm`" + ` is mounted and writable.`,
	}

	sketchStartFailedIssue = &Issue{
		id: SketchStartFailedId,
		mdMsg: `
# The sketch could not be started

The binary reported by the build was not executable. Rebuild the sketch and
check the build log for linker warnings.`,
	}

	sketchCrashedIssue = &Issue{
		id: SketchCrashedId,
		mdMsg: `
# The sketch exited unexpectedly

Its standard error is shown above. A negative exit code means it was
ended by a signal.`,
	}

	configLoadFailedIssue = &Issue{
		id: ConfigLoadFailedId,
		mdMsg: `
# Failed to load the configuration

## Things you can try
- Check the CUE syntax of your config file.
- Write a fresh default file:
~~~
$ smce config init
~~~`,
	}

	permissionDeniedIssue = &Issue{
		id: PermissionDeniedId,
		mdMsg: `
# Permission denied

Check that you can read the sketch and resources, and write the build
directory and shared memory.`,
	}

	issues = map[Id]*Issue{
		boardConfigInvalidIssue.Id():  boardConfigInvalidIssue,
		sketchConfigInvalidIssue.Id(): sketchConfigInvalidIssue,
		sketchNotFoundIssue.Id():      sketchNotFoundIssue,
		resourceDirNotFoundIssue.Id(): resourceDirNotFoundIssue,
		cmakeNotFoundIssue.Id():       cmakeNotFoundIssue,
		buildFailedIssue.Id():         buildFailedIssue,
		segmentCreateFailedIssue.Id(): segmentCreateFailedIssue,
		sketchStartFailedIssue.Id():   sketchStartFailedIssue,
		sketchCrashedIssue.Id():       sketchCrashedIssue,
		configLoadFailedIssue.Id():    configLoadFailedIssue,
		permissionDeniedIssue.Id():    permissionDeniedIssue,
	}
)

// Values returns every catalog entry ordered by id.
func Values() []*Issue {
	ids := slices.Sorted(maps.Keys(issues))
	out := make([]*Issue, 0, len(ids))
	for _, id := range ids {
		out = append(out, issues[id])
	}
	return out
}

// Get returns the entry for id, or nil.
func Get(id Id) *Issue {
	return issues[id]
}
