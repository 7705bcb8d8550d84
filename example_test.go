package arbor_test

import (
	"context"
	"fmt"
	"log"
	"strings"

	"github.com/aretw0/arbor"
	"github.com/aretw0/arbor/pkg/adapters/memory"
	"github.com/aretw0/arbor/pkg/domain"
	"github.com/aretw0/arbor/pkg/tree"
)

// ExampleNew_memory edits a document held in memory: it inserts a node,
// types it, deletes it and undoes the deletion.
func ExampleNew_memory() {
	ctx := context.Background()
	ws, err := arbor.New("", arbor.WithStore(memory.NewStore()))
	if err != nil {
		log.Fatal(err)
	}

	ed, err := ws.Create(ctx, "patrol.json", "patrol")
	if err != nil {
		log.Fatal(err)
	}

	for _, name := range []string{"Log", "Wait"} {
		id, err := ed.Insert(ctx, domain.RootID)
		if err != nil {
			log.Fatal(err)
		}
		if err := ed.UpdateNode(ctx, id, func(n *domain.Node) { n.Name = name }); err != nil {
			log.Fatal(err)
		}
	}

	show := func() {
		var parts []string
		ed.View(func(doc *domain.Document) {
			tree.Walk(doc.Root, func(n *domain.Node) bool {
				parts = append(parts, n.ID+":"+n.Name)
				return true
			})
		})
		fmt.Println(strings.Join(parts, " "))
	}

	show()
	_ = ed.Delete(ctx, "2")
	show()
	_ = ed.Undo(ctx)
	show()

	// Output:
	// 1:Sequence 2:Log 3:Wait
	// 1:Sequence 2:Wait
	// 1:Sequence 2:Log 3:Wait
}
