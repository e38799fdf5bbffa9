package main

import (
	"context"
	"fmt"
	"os"

	"github.com/m1gwings/treedrawer/tree"
	"github.com/spf13/cobra"
	"golang.org/x/term"

	"github.com/tamed-go/tamed"
)

var treeCmd = &cobra.Command{
	Use:   "tree",
	Short: "Render a sample scope nesting as an ASCII tree",
	RunE:  executeTree,
}

// buildSampleScopeTree opens a small parent/child/grandchild AsyncScope
// nesting so the tree subcommand has live scope structure to render,
// instead of a hardcoded string.
func buildSampleScopeTree() *tamed.AsyncScope {
	root := tamed.Enter(context.Background())
	requests := root.Child()
	_ = requests.Child()
	_ = requests.Child()
	background := root.Child()
	_ = background.Child()
	return root
}

func scopeToTree(s *tamed.AsyncScope) *tree.Tree {
	node := tree.NewTree(tree.NodeString(s.ID()))
	for _, child := range s.ChildScopes() {
		childTree := scopeToTree(child)
		addTreeAsChild(node, childTree)
	}
	return node
}

// addTreeAsChild grafts an independently-built subtree onto parent,
// following the same node-by-node copy treedrawer's own examples use since
// *tree.Tree does not expose a direct "attach subtree" method.
func addTreeAsChild(parent *tree.Tree, child *tree.Tree) {
	newChild := parent.AddChild(child.Val())
	for _, grandchild := range child.Children() {
		addTreeAsChild(newChild, grandchild)
	}
}

func executeTree(cmd *cobra.Command, _ []string) error {
	width := 80
	if w, _, err := term.GetSize(int(os.Stdout.Fd())); err == nil && w > 0 {
		width = w
	}

	root := buildSampleScopeTree()
	defer closeScopeTree(root)

	rendered := scopeToTree(root).String()
	if width < 40 {
		fmt.Fprintln(cmd.OutOrStdout(), "(terminal too narrow for tree layout)")
		fmt.Fprintln(cmd.OutOrStdout(), root.ID())
		return nil
	}
	fmt.Fprintln(cmd.OutOrStdout(), rendered)
	return nil
}

// closeScopeTree drains every scope in the sample nesting leaf-first.
func closeScopeTree(s *tamed.AsyncScope) {
	for _, child := range s.ChildScopes() {
		closeScopeTree(child)
	}
	_ = s.Close(context.Background())
}
