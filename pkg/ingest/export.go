package ingest

import (
	"bufio"
	"fmt"
	"io"
	"os"

	"github.com/bastiangx/placeserve/pkg/place"
	"github.com/vmihailenco/msgpack/v5"
)

// WriteMsgpack writes records as a MessagePack array that LoadFile reads back.
func WriteMsgpack(w io.Writer, records []place.Record) error {
	enc := msgpack.NewEncoder(w)
	if err := enc.EncodeArrayLen(len(records)); err != nil {
		return err
	}
	for i := range records {
		if err := enc.Encode(&records[i]); err != nil {
			return fmt.Errorf("failed to encode record %d: %w", i, err)
		}
	}
	return nil
}

// ExportFile writes records to path as MessagePack, compressed according to the file
// name (".msgpack.gz", ".mp.zst").
func ExportFile(path string, records []place.Record) error {
	format, compression, err := DetectFormat(path)
	if err != nil {
		return err
	}
	if format != FormatMsgpack {
		return fmt.Errorf("%w: export writes MessagePack only, got %s", ErrUnknownFormat, path)
	}

	file, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("failed to create %s: %w", path, err)
	}
	defer file.Close()

	buf := bufio.NewWriter(file)
	w, finish, err := compress(buf, compression)
	if err != nil {
		return err
	}
	if err := WriteMsgpack(w, records); err != nil {
		return fmt.Errorf("failed to write %s: %w", path, err)
	}
	if err := finish(); err != nil {
		return fmt.Errorf("failed to finish %s: %w", path, err)
	}
	if err := buf.Flush(); err != nil {
		return fmt.Errorf("failed to flush %s: %w", path, err)
	}
	return file.Close()
}
