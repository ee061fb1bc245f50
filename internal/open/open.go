package open

import (
	"fmt"
	"os"
	"os/exec"
	"strconv"
	"strings"

	"github.com/Zuo-Peng/tavern-chat/internal/index"
)

// OpenChat opens the chat file in $EDITOR, positioned at the source line of
// the message with the given FileLine (or the top when fileLine < 0).
func OpenChat(db *index.DB, chatKey string, fileLine int) error {
	chat, err := db.GetChatByKey(chatKey)
	if err != nil {
		return fmt.Errorf("get chat: %w", err)
	}
	if chat == nil {
		return fmt.Errorf("chat not found: %s", chatKey)
	}

	filePath := chat.FilePath
	if _, err := os.Stat(filePath); err != nil {
		return fmt.Errorf("file not found: %s", filePath)
	}

	lineNum := 1
	if fileLine >= 0 {
		msgs, err := db.GetMessages(chatKey)
		if err == nil {
			lineNum = sourceLine(msgs, fileLine)
		}
	}

	editor := os.Getenv("EDITOR")
	if editor == "" {
		editor = "less"
	}

	return openInEditor(editor, filePath, lineNum)
}

// sourceLine maps a message FileLine to its physical line in the file.
func sourceLine(msgs []index.MessageRow, fileLine int) int {
	for _, m := range msgs {
		if m.FileLine == fileLine && m.SourceLine > 0 {
			return m.SourceLine
		}
	}
	return 1
}

func editorCommand(editor, filePath string, lineNum int) *exec.Cmd {
	switch {
	case strings.Contains(editor, "vim") || strings.Contains(editor, "nvim"):
		return exec.Command(editor, fmt.Sprintf("+%d", lineNum), filePath)
	case strings.Contains(editor, "code"):
		return exec.Command(editor, "--goto", filePath+":"+strconv.Itoa(lineNum))
	case strings.Contains(editor, "less"):
		return exec.Command(editor, "+"+strconv.Itoa(lineNum), filePath)
	default:
		return exec.Command(editor, filePath)
	}
}

func openInEditor(editor, filePath string, lineNum int) error {
	cmd := editorCommand(editor, filePath, lineNum)
	cmd.Stdin = os.Stdin
	cmd.Stdout = os.Stdout
	cmd.Stderr = os.Stderr
	return cmd.Run()
}
