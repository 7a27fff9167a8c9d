// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package cli

import (
	"context"
	"errors"
	"fmt"
	"io"
	"path/filepath"
	"strings"

	"github.com/dustin/go-humanize"
	"github.com/jeranaias/assist-tui/internal/api"
	"github.com/jeranaias/assist-tui/internal/util"
)

const filesUsage = "assist files ID [list|upload PATH|delete FILE_ID|download FILE_ID [--out PATH|-]|url FILE_ID]"

// HandleFiles handles "assist files ID ...".
func HandleFiles(ctx context.Context, env *Env, args Args) error {
	p := NewArgParser(args.Raw, "yes")
	id, err := ParseID(p.Positional(0), "assistant id", "assist files 3 list")
	if err != nil {
		return err
	}

	switch sub := strings.ToLower(p.Positional(1)); sub {
	case "", "list", "ls":
		return listFiles(ctx, env, args, id)
	case "upload", "add":
		path := p.Positional(2)
		if path == "" {
			return ErrMissingArgument("path", "assist files 3 upload ./handbook.pdf")
		}
		return uploadFile(ctx, env, args, id, path)
	case "delete", "rm":
		fileID, err := ParseID(p.Positional(2), "file id", "assist files 3 delete 12 --yes")
		if err != nil {
			return err
		}
		return deleteFile(ctx, env, args, id, fileID, p.BoolFlag("yes"))
	case "download", "get":
		fileID, err := ParseID(p.Positional(2), "file id", "assist files 3 download 12 --out notes.pdf")
		if err != nil {
			return err
		}
		return downloadFile(ctx, env, args, id, fileID, p.Flag("out"))
	case "url", "link":
		fileID, err := ParseID(p.Positional(2), "file id", "assist files 3 url 12")
		if err != nil {
			return err
		}
		return fileURL(env, args, id, fileID)
	default:
		return ErrUnknownSubcommand("files", sub, filesUsage)
	}
}

func listFiles(ctx context.Context, env *Env, args Args, id int64) error {
	files, err := env.Client.ListFiles(ctx, id)
	if err != nil {
		return err
	}
	return env.emit(args, "files list", files, func(w io.Writer) {
		if len(files) == 0 {
			fmt.Fprintln(w, DimStyle.Render("No documents uploaded."))
			return
		}
		fmt.Fprintf(w, "%-6s %-36s %10s  %s\n", "ID", "NAME", "SIZE", "UPLOADED")
		for _, f := range files {
			when := ""
			if !f.UploadedAt.IsZero() {
				when = humanize.Time(f.UploadedAt.Time)
			}
			fmt.Fprintf(w, "%-6d %-36s %10s  %s\n", f.ID, oneLine(f.Filename, 36), formatBytes(f.FileSize), when)
		}
	})
}

func uploadFile(ctx context.Context, env *Env, args Args, id int64, path string) error {
	// Checked here too so a bad file never costs a round trip.
	if _, err := api.CheckUpload(path); err != nil {
		return err
	}
	f, err := env.Client.UploadFile(ctx, id, path)
	if err != nil {
		return err
	}
	env.logger().Info().Int64("assistant_id", id).Int64("file_id", f.ID).Msg("document uploaded")
	return env.emit(args, "files upload", f, func(w io.Writer) {
		fmt.Fprintf(w, "%s Uploaded %s (%s) as file %d\n", SuccessStyle.Render("[OK]"), f.Filename, formatBytes(f.FileSize), f.ID)
	})
}

func deleteFile(ctx context.Context, env *Env, args Args, id, fileID int64, yes bool) error {
	if err := RequireConfirmation(env, yes, fmt.Sprintf("Delete file %d", fileID)); err != nil {
		return err
	}
	if err := env.Client.DeleteFile(ctx, id, fileID); err != nil {
		return err
	}
	return env.emit(args, "files delete", map[string]int64{"deleted": fileID}, func(w io.Writer) {
		fmt.Fprintf(w, "%s Deleted file %d\n", SuccessStyle.Render("[OK]"), fileID)
	})
}

// downloadFile saves a document. Without --out the server's file name is
// used in the working directory; "-" streams to stdout.
func downloadFile(ctx context.Context, env *Env, args Args, id, fileID int64, out string) error {
	if out == "-" {
		_, err := env.Client.DownloadFile(ctx, id, fileID, env.Out)
		return err
	}

	if out == "" {
		name, err := remoteFilename(ctx, env, id, fileID)
		if err != nil {
			return err
		}
		out = name
	}

	pr, pw := io.Pipe()
	go func() {
		_, err := env.Client.DownloadFile(ctx, id, fileID, pw)
		pw.CloseWithError(err)
	}()
	n, err := util.AtomicWrite(out, pr, 0o644)
	// Unblock the download if the write side failed first.
	pr.CloseWithError(err)
	if err != nil {
		if inner := unwrapPipe(err); inner != nil {
			return inner
		}
		return err
	}

	data := DownloadData{FileID: fileID, Path: out, Bytes: n}
	return env.emit(args, "files download", data, func(w io.Writer) {
		fmt.Fprintf(w, "%s Saved %s (%s)\n", SuccessStyle.Render("[OK]"), out, formatBytes(n))
	})
}

// remoteFilename looks the file up to name the local copy.
func remoteFilename(ctx context.Context, env *Env, id, fileID int64) (string, error) {
	files, err := env.Client.ListFiles(ctx, id)
	if err != nil {
		return "", err
	}
	for _, f := range files {
		if f.ID == fileID {
			return filepath.Base(f.Filename), nil
		}
	}
	return "", &NotFoundError{Resource: "file", ID: fmt.Sprint(fileID)}
}

// unwrapPipe returns the download error wrapped by AtomicWrite, so the
// exit code reflects the network or API failure rather than the write.
func unwrapPipe(err error) error {
	for e := err; e != nil; e = errors.Unwrap(e) {
		switch e.(type) {
		case *api.APIError, *api.NetworkError, *api.AuthError, *api.SessionExpiredError:
			return e
		}
	}
	return nil
}

func fileURL(env *Env, args Args, id, fileID int64) error {
	link, err := env.Client.DownloadURL(id, fileID)
	if err != nil {
		return err
	}
	if !args.JSON && env.Interactive {
		fmt.Fprintln(env.Err, WarningStyle.Render("This link contains your session token. Do not share it."))
	}
	return env.emit(args, "files url", map[string]string{"url": link}, func(w io.Writer) {
		fmt.Fprintln(w, link)
	})
}

// HandleCollection handles "assist collection ID".
func HandleCollection(ctx context.Context, env *Env, args Args) error {
	p := NewArgParser(args.Raw)
	id, err := ParseID(p.Positional(0), "assistant id", "assist collection 3")
	if err != nil {
		return err
	}
	c, err := env.Client.Collection(ctx, id)
	if err != nil {
		return err
	}
	return env.emit(args, "collection", c, func(w io.Writer) {
		fmt.Fprintln(w, RenderField("Collection", fmt.Sprint(c.ID)))
		fmt.Fprintln(w, RenderField("External ID", c.ExternalID))
		if !c.CreatedAt.IsZero() {
			fmt.Fprintln(w, RenderField("Created", humanize.Time(c.CreatedAt.Time)))
		}
	})
}
