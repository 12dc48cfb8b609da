package refresh

import "edflex-sync/internal/domain"

// DefaultDepth reaches course -> section -> subsection -> unit -> item.
const DefaultDepth = 4

// Location addresses one block of one course on one branch.
type Location struct {
	CourseID string
	BlockID  string
	Branch   string
}

func (l Location) ForBranch(branch string) Location {
	l.Branch = branch
	return l
}

func (l Location) String() string {
	s := l.CourseID + "/" + l.BlockID
	if l.Branch != "" {
		s += "@" + l.Branch
	}
	return s
}

// Node is one block of a course tree.
type Node interface {
	Location() Location
	Children() []Node
}

// ResourceNode is a block that embeds a partner resource snapshot.
type ResourceNode interface {
	Node
	Snapshot() domain.Snapshot
	SetSnapshot(domain.Snapshot)
}

// Walk calls visit for every descendant of root down to depth levels below
// it, parents before children. root itself is not visited.
func Walk(root Node, depth int, visit func(Node)) {
	if root == nil || depth <= 0 {
		return
	}
	for _, child := range root.Children() {
		if child == nil {
			continue
		}
		visit(child)
		Walk(child, depth-1, visit)
	}
}
