// Package walk builds a nested snapshot of a directory tree.
//
// Every directory is listed concurrently and every list or stat call is
// bounded by a timeout. Failures below the root are reported in place:
//
//	tree, err := walk.ListDir(context.Background(), "/srv/data")
//	// tree == walk.Tree{
//	//	"a.txt": walk.Leaf{Kind: walk.LeafFile},
//	//	"logs":  walk.Leaf{Kind: walk.LeafError, Message: "open /srv/data/logs: permission denied"},
//	//	"empty": walk.Tree{},
//	// }
//
// Only a failure to list the root itself is returned as err.
//
// Custom backends implement Source:
//
//	opts := walk.NewOptions(walk.NewAferoSource(afero.NewMemMapFs()))
//	opts = walk.WithTimeout(opts, 2*time.Second)
//	walk.ListTree(ctx, "/", opts, func(tree walk.Tree, err error) {
//		// called exactly once
//	})
//
// Watch re-lists a local tree after every change:
//
//	err := walk.Watch(ctx, "/srv/data", walk.NewOptions(walk.NewOSSource()), walk.WatchOptions{},
//		func(ctx context.Context, result walk.WatchResult) error {
//			fmt.Println(result.Event, len(result.Tree))
//			return nil
//		})
package walk
