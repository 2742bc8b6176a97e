package runner

import (
	"bufio"
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os/exec"

	"catalogd/internal/catalogerr"
)

// ExifTags is the grouped tag subset the core reads, per spec.md §6:
// "core reads File/QuickTime/EXIF/Composite/MakerNotes". Values are left as
// strings; the indexer is responsible for parsing timestamps/GPS.
type ExifTags map[string]string

type Exiftool struct {
	Path string
}

func NewExiftool(path string) *Exiftool { return &Exiftool{Path: path} }

// ExtractFromStream runs exiftool with JSON output over a streamed file
// body, grounded on the teacher's internal/utils/exif runExifToolFromStream
// (stdin-piped, no full-file buffering).
func (e *Exiftool) ExtractFromStream(ctx context.Context, r io.Reader) (ExifTags, error) {
	cmd := exec.CommandContext(ctx, e.Path, "-j", "-charset", "utf8", "-ignoreMinorErrors", "-fast", "-")

	stdin, err := cmd.StdinPipe()
	if err != nil {
		return nil, wrapIoErr("open exiftool stdin", err)
	}
	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	if err := cmd.Start(); err != nil {
		return nil, &catalogerr.ExternalProcessFailed{Name: "exiftool", ExitStatus: -1, Stderr: err.Error()}
	}

	copyErrCh := make(chan error, 1)
	go func() {
		defer stdin.Close()
		_, err := io.Copy(stdin, bufio.NewReader(r))
		copyErrCh <- err
	}()

	waitErr := cmd.Wait()
	copyErr := <-copyErrCh

	if ctx.Err() != nil {
		return nil, &catalogerr.Cancelled{Task: "exiftool"}
	}
	if copyErr != nil && copyErr != io.EOF {
		return nil, wrapIoErr("stream file to exiftool", copyErr)
	}
	if waitErr != nil {
		exitStatus := -1
		if ee, ok := waitErr.(*exec.ExitError); ok {
			exitStatus = ee.ExitCode()
		}
		return nil, &catalogerr.ExternalProcessFailed{Name: "exiftool", ExitStatus: exitStatus, Stderr: stderr.String()}
	}

	return parseExiftoolJSON(stdout.Bytes())
}

func parseExiftoolJSON(raw []byte) (ExifTags, error) {
	var docs []map[string]any
	if err := json.Unmarshal(raw, &docs); err != nil {
		return nil, &catalogerr.DecodeError{Source: "exiftool json", Err: err}
	}
	if len(docs) == 0 {
		return nil, &catalogerr.DecodeError{Source: "exiftool json", Err: fmt.Errorf("empty result array")}
	}

	tags := make(ExifTags, len(docs[0]))
	for k, v := range docs[0] {
		switch val := v.(type) {
		case string:
			tags[k] = val
		default:
			b, _ := json.Marshal(val)
			tags[k] = string(b)
		}
	}
	return tags, nil
}
