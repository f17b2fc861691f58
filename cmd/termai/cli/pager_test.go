package cli

import (
	"bytes"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestWriteReplyWritesDirectlyWhenNotATerminal(t *testing.T) {
	var buf bytes.Buffer
	writeReply(&buf, "hello there")
	require.Equal(t, "hello there\n", buf.String())
}
