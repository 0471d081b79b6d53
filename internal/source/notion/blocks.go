package notion

import (
	"strings"
)

const indentUnit = "  "

// RenderBlocks converts a block tree to plain text. Unknown and structural
// block types render as nothing but their children are still rendered.
// The output depends only on the input.
func RenderBlocks(blocks []Block) string {
	var lines []string
	renderInto(&lines, blocks, 0)
	return strings.Join(lines, "\n")
}

func renderInto(lines *[]string, blocks []Block, depth int) {
	indent := strings.Repeat(indentUnit, depth)
	for _, b := range blocks {
		if text := renderBlock(b); text != "" {
			for _, line := range strings.Split(text, "\n") {
				*lines = append(*lines, indent+line)
			}
		}
		if len(b.Children) > 0 {
			renderInto(lines, b.Children, depth+1)
		}
	}
}

// renderBlock renders a single block without its children.
func renderBlock(b Block) string {
	text := PlainText(b.Data.RichText)
	switch b.Type {
	case "paragraph", "toggle":
		return text
	case "heading_1":
		return prefixed("# ", text)
	case "heading_2":
		return prefixed("## ", text)
	case "heading_3":
		return prefixed("### ", text)
	case "bulleted_list_item":
		return "- " + text
	case "numbered_list_item":
		return "1. " + text
	case "to_do":
		if b.Data.Checked {
			return "[x] " + text
		}
		return "[ ] " + text
	case "quote", "callout":
		return prefixed("> ", text)
	case "code":
		return "```" + b.Data.Language + "\n" + text + "\n```"
	case "divider":
		return "---"
	case "equation":
		if b.Data.Expression == "" {
			return ""
		}
		return "$$" + b.Data.Expression + "$$"
	case "table_row":
		cells := make([]string, 0, len(b.Data.Cells))
		for _, cell := range b.Data.Cells {
			cells = append(cells, PlainText(cell))
		}
		return strings.Join(cells, " | ")
	case "child_page":
		return "[Page: " + b.Data.Title + "]"
	case "child_database":
		return "[Database: " + b.Data.Title + "]"
	case "image":
		return media("Image", b.Data)
	case "video":
		return media("Video", b.Data)
	case "audio":
		return media("Audio", b.Data)
	case "file":
		return media("File", b.Data)
	case "pdf":
		return media("PDF", b.Data)
	case "bookmark":
		return link("Bookmark", b.Data.URL)
	case "embed":
		return link("Embed", b.Data.URL)
	case "link_preview":
		return link("Link", b.Data.URL)
	default:
		return ""
	}
}

func prefixed(prefix, text string) string {
	if text == "" {
		return ""
	}
	return prefix + text
}

func media(label string, d BlockData) string {
	desc := PlainText(d.Caption)
	if desc == "" {
		desc = d.Name
	}
	if desc == "" {
		desc = d.FileURL()
	}
	return "[" + label + ": " + desc + "]"
}

func link(label, url string) string {
	if url == "" {
		return ""
	}
	return "[" + label + ": " + url + "]"
}
