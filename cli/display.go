package main

import (
	"fmt"
	"io"

	"github.com/opal-lang/acd/core/model"
)

type treeNode struct {
	label    string
	children []*treeNode
}

// DisplayDefinition renders the items of a definition as a tree, with
// sections as branches and associated qualifiers under their master.
func DisplayDefinition(w io.Writer, def *model.Definition, useColor bool) {
	_, _ = fmt.Fprintf(w, "%s:\n", def.Program)

	root := &treeNode{}
	stack := []*treeNode{root}
	for _, it := range def.Items {
		top := stack[len(stack)-1]
		switch {
		case it.IsAssociated, it.Kind == model.KindApplication, it.Kind == model.KindRelation:
			continue
		case it.Kind == model.KindSection:
			n := &treeNode{label: Colorize("section "+it.Name, ColorCyan, useColor)}
			top.children = append(top.children, n)
			stack = append(stack, n)
		case it.Kind == model.KindEndSection:
			if len(stack) > 1 {
				stack = stack[:len(stack)-1]
			}
		default:
			n := &treeNode{label: itemLabel(it, useColor)}
			for _, assoc := range def.AssocOf(it) {
				n.children = append(n.children, &treeNode{label: itemLabel(assoc, useColor)})
			}
			top.children = append(top.children, n)
		}
	}

	if len(root.children) == 0 {
		_, _ = fmt.Fprintf(w, "(no items)\n")
		return
	}
	renderChildren(w, root.children, "")
}

func renderChildren(w io.Writer, nodes []*treeNode, indent string) {
	for i, n := range nodes {
		prefix, next := "├─ ", "│  "
		if i == len(nodes)-1 {
			prefix, next = "└─ ", "   "
		}
		_, _ = fmt.Fprintf(w, "%s%s%s\n", indent, prefix, n.label)
		renderChildren(w, n.children, indent+next)
	}
}

func itemLabel(it *model.Item, useColor bool) string {
	switch it.Kind {
	case model.KindVariable:
		return fmt.Sprintf("%s %s", it.Name, Colorize("(variable)", ColorGray, useColor))
	case model.KindParameter:
		return fmt.Sprintf("%s %s", it.Name, Colorize(fmt.Sprintf("(%s, parameter %d)", it.Type, it.ParamNum), ColorGray, useColor))
	}
	return fmt.Sprintf("%s %s", it.Name, Colorize("("+it.Type+")", ColorGray, useColor))
}
