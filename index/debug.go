package index

import (
	"fmt"
	"strings"

	"github.com/zhukovaskychina/xindex/basic"
	"github.com/zhukovaskychina/xindex/storage/pages"
)

// Dump 返回树结构的文本描述，仅供调试
// 使用不加锁的basic guard遍历，与写入并发时输出可能不一致
func (t *BPlusTree) Dump() string {
	rootPageNo, err := t.RootPageNo()
	if err != nil {
		return fmt.Sprintf("<%s: %v>", t.name, err)
	}
	if rootPageNo == basic.InvalidPageNo {
		return fmt.Sprintf("<%s: empty>", t.name)
	}

	var sb strings.Builder
	fmt.Fprintf(&sb, "index %s, root=%d\n", t.name, rootPageNo)
	t.dumpPage(&sb, rootPageNo, 0)
	return sb.String()
}

func (t *BPlusTree) dumpPage(sb *strings.Builder, pageNo uint32, depth int) {
	guard, err := t.pool.FetchBasicGuard(pageNo)
	if err != nil {
		fmt.Fprintf(sb, "%s<page %d: %v>\n", strings.Repeat("  ", depth), pageNo, err)
		return
	}
	defer guard.Drop()

	indent := strings.Repeat("  ", depth)
	node := pages.NewBTreePage(guard.Data())
	if node.IsLeaf() {
		leaf := t.leafView(guard.Data())
		keys := make([]string, 0, leaf.Size())
		for i := 0; i < leaf.Size(); i++ {
			keys = append(keys, fmt.Sprintf("%x", leaf.KeyAt(i)))
		}
		fmt.Fprintf(sb, "%sleaf %d size=%d next=%d [%s]\n",
			indent, pageNo, leaf.Size(), int32(leaf.NextPageNo()), strings.Join(keys, " "))
		return
	}

	internal := t.internalView(guard.Data())
	keys := make([]string, 0, internal.Size())
	for i := 1; i < internal.Size(); i++ {
		keys = append(keys, fmt.Sprintf("%x", internal.KeyAt(i)))
	}
	fmt.Fprintf(sb, "%sinternal %d size=%d [%s]\n", indent, pageNo, internal.Size(), strings.Join(keys, " "))

	children := make([]uint32, 0, internal.Size())
	for i := 0; i < internal.Size(); i++ {
		children = append(children, internal.ChildAt(i))
	}
	guard.Drop()

	for _, child := range children {
		t.dumpPage(sb, child, depth+1)
	}
}
