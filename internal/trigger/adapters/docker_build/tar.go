package dockerbuild

import (
	"archive/tar"
	"io"
)

// appendFileToTar re-streams a tar archive with one extra regular-file
// entry appended. Tar archives cannot be appended to after their EOF
// blocks, so the entries are copied through a fresh writer.
func appendFileToTar(src io.ReadCloser, name string, body []byte) io.ReadCloser {
	pr, pw := io.Pipe()
	go func() {
		defer src.Close()

		tr := tar.NewReader(src)
		tw := tar.NewWriter(pw)

		var err error
		for {
			var hdr *tar.Header
			hdr, err = tr.Next()
			if err == io.EOF {
				err = nil
				break
			}
			if err != nil {
				break
			}
			if err = tw.WriteHeader(hdr); err != nil {
				break
			}
			if _, err = io.Copy(tw, tr); err != nil {
				break
			}
		}

		if err == nil {
			err = tw.WriteHeader(&tar.Header{
				Name: name,
				Mode: 0o600,
				Size: int64(len(body)),
			})
		}
		if err == nil {
			_, err = tw.Write(body)
		}
		if closeErr := tw.Close(); err == nil {
			err = closeErr
		}
		pw.CloseWithError(err)
	}()
	return pr
}
