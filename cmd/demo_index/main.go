package main

import (
	"flag"
	"fmt"
	"os"

	"github.com/zhukovaskychina/xindex/basic"
	"github.com/zhukovaskychina/xindex/buffer_pool"
	"github.com/zhukovaskychina/xindex/conf"
	"github.com/zhukovaskychina/xindex/index"
	"github.com/zhukovaskychina/xindex/logger"
)

var configPath = flag.String("config", "", "ini配置文件路径")

func main() {
	flag.Parse()

	cfg, err := conf.Load(*configPath)
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
	if err := cfg.Validate(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
	cfg.InitLogging()

	dataFile, err := cfg.EnsureDataDir()
	if err != nil {
		logger.Errorf("prepare data dir: %v", err)
		os.Exit(1)
	}

	disk, err := buffer_pool.NewDiskManager(dataFile, cfg.PageSize)
	if err != nil {
		logger.Errorf("open disk manager: %v", err)
		os.Exit(1)
	}
	pool, err := buffer_pool.NewBufferPool(cfg.BufferPoolPages, disk)
	if err != nil {
		logger.Errorf("create buffer pool: %v", err)
		os.Exit(1)
	}
	defer pool.Close()

	headerPageNo := disk.AllocatePage()
	tree, err := index.NewBPlusTree("demo", headerPageNo, pool,
		basic.CompareInt64, basic.Int64KeySize, 4, 4)
	if err != nil {
		logger.Errorf("create index: %v", err)
		os.Exit(1)
	}

	for _, k := range []int64{5, 3, 7, 1, 9, 4, 6, 2, 8, 10, 11, 12} {
		ok, err := tree.Insert(basic.Int64Key(k), basic.RID{PageNo: uint32(k), SlotNo: 0})
		if err != nil {
			logger.Errorf("insert %d: %v", k, err)
			os.Exit(1)
		}
		logger.Infof("insert %d ok=%v", k, ok)
	}

	fmt.Print(tree.Dump())

	var rids []basic.RID
	found, err := tree.GetValue(basic.Int64Key(7), &rids)
	if err != nil {
		logger.Errorf("get: %v", err)
		os.Exit(1)
	}
	logger.Infof("get 7: found=%v rids=%v", found, rids)

	for _, k := range []int64{3, 4, 5} {
		if err := tree.Remove(basic.Int64Key(k)); err != nil {
			logger.Errorf("remove %d: %v", k, err)
			os.Exit(1)
		}
	}
	fmt.Print(tree.Dump())

	it, err := tree.Begin()
	if err != nil {
		logger.Errorf("scan: %v", err)
		os.Exit(1)
	}
	for ; !it.IsEnd(); it.Next() {
		logger.Infof("scan key=%d rid=%v", basic.Int64FromKey(it.Key()), it.Value())
	}
	if it.Err() != nil {
		logger.Errorf("scan aborted: %v", it.Err())
	}
}
