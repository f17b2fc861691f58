package cli

import (
	"io"
	"os"
	"os/exec"
	"strings"

	"golang.org/x/term"
)

// writeReply prints content to w, routing it through $PAGER (or less) when
// w is an interactive terminal and the content is too tall to fit on one
// screen, mirroring the teacher's long-output paging behavior.
func writeReply(w io.Writer, content string) {
	f, ok := w.(*os.File)
	if !ok || f != os.Stdout || !term.IsTerminal(int(f.Fd())) {
		io.WriteString(w, content+"\n")
		return
	}

	_, height, err := term.GetSize(int(f.Fd()))
	if err != nil {
		height = 24
	}
	if strings.Count(content, "\n") <= height-2 {
		io.WriteString(w, content+"\n")
		return
	}

	pagerName := os.Getenv("PAGER")
	if pagerName == "" {
		pagerName = "less"
	}
	cmd := exec.Command(pagerName)
	cmd.Stdin = strings.NewReader(content + "\n")
	cmd.Stdout = os.Stdout
	cmd.Stderr = os.Stderr
	if err := cmd.Run(); err != nil {
		io.WriteString(w, content+"\n")
	}
}
