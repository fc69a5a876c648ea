// SPDX-License-Identifier: MPL-2.0

package sketchbuild

import (
	"strings"

	"smce-runner/internal/boardconf"
)

// LibraryArgs holds the four semicolon-separated library lists passed to
// the configure script.
type LibraryArgs struct {
	PreprocRemote  string
	ComplinkRemote string
	ComplinkLocal  string
	ComplinkPatch  string
}

// SerializeLibraries flattens a sketch's libraries into LibraryArgs.
//
// Preprocessing only resolves remote libraries. For linking, remote
// libraries go to the remote list as name[@version]; local libraries go to
// the local list by root directory, unless they patch a remote library, in
// which case the patched name joins the remote list and "root|name" joins
// the patch list. Freestanding libraries need no arguments.
func SerializeLibraries(cfg boardconf.SketchConfig) LibraryArgs {
	var pre, remote, local, patch strings.Builder

	for _, lib := range cfg.PreprocLibs {
		if r, ok := lib.(boardconf.RemoteLibrary); ok {
			pre.WriteString(r.Ref())
			pre.WriteByte(';')
		}
	}

	for _, lib := range cfg.ComplinkLibs {
		switch l := lib.(type) {
		case boardconf.RemoteLibrary:
			remote.WriteString(l.Ref())
			remote.WriteByte(';')
		case boardconf.LocalLibrary:
			if !l.IsPatch() {
				local.WriteString(l.RootDir)
				local.WriteByte(';')
				continue
			}
			remote.WriteString(l.PatchFor)
			remote.WriteByte(';')
			patch.WriteString(l.RootDir)
			patch.WriteByte('|')
			patch.WriteString(l.PatchFor)
			patch.WriteByte(';')
		case boardconf.FreestandingLibrary, nil:
		}
	}

	return LibraryArgs{
		PreprocRemote:  strings.TrimSuffix(pre.String(), ";"),
		ComplinkRemote: strings.TrimSuffix(remote.String(), ";"),
		ComplinkLocal:  strings.TrimSuffix(local.String(), ";"),
		ComplinkPatch:  strings.TrimSuffix(patch.String(), ";"),
	}
}
