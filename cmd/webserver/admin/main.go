package main

import (
	"context"
	"fmt"
	"log"
	"os"
	"strconv"
	"time"

	"crosspost/internal/auth"
	"crosspost/internal/config"
	"crosspost/internal/storage"
)

func main() {
	// 简单命令行参数解析
	if len(os.Args) < 2 {
		fmt.Println("使用方法:")
		fmt.Println("  ./admin hash-password <password>   - 生成 AUTH.PASSWORD_HASH 的值")
		fmt.Println("  ./admin list-scheduled             - 列出所有待发送的定时帖子")
		fmt.Println("  ./admin show-scheduled <postID>    - 显示定时帖子详情")
		fmt.Println("  ./admin delete-scheduled <postID>  - 删除定时帖子")
		os.Exit(1)
	}

	if os.Args[1] == "hash-password" {
		if len(os.Args) < 3 {
			log.Fatalf("需要指定密码")
		}
		hash, err := auth.HashPassword(os.Args[2])
		if err != nil {
			log.Fatalf("生成密码哈希失败: %v", err)
		}
		fmt.Println(hash)
		return
	}

	cfg, err := config.LoadConfig("")
	if err != nil {
		log.Fatalf("无法加载配置: %v", err)
	}
	db, err := storage.InitDB(cfg.Database, "warn")
	if err != nil {
		log.Fatalf("Failed to connect to database: %v", err)
	}
	repo := storage.NewGormScheduledPostRepository(db)
	loc := cfg.Post.Location()

	switch os.Args[1] {
	case "list-scheduled":
		listScheduled(repo, loc)

	case "show-scheduled":
		showScheduled(repo, parseID(), loc)

	case "delete-scheduled":
		id := parseID()
		if err := repo.Delete(context.Background(), id); err != nil {
			log.Fatalf("删除定时帖子失败: %v", err)
		}
		fmt.Printf("定时帖子 %d 已删除\n", id)

	default:
		log.Fatalf("未知命令: %s", os.Args[1])
	}
}

func parseID() uint {
	if len(os.Args) < 3 {
		log.Fatalf("需要指定帖子ID")
	}
	id, err := strconv.ParseUint(os.Args[2], 10, 64)
	if err != nil {
		log.Fatalf("无效的帖子ID: %v", err)
	}
	return uint(id)
}

func listScheduled(repo storage.ScheduledPostRepository, loc *time.Location) {
	// everything not yet sent, however far ahead
	posts, err := repo.ListDue(context.Background(), time.Now().AddDate(100, 0, 0), 0)
	if err != nil {
		log.Fatalf("获取定时帖子失败: %v", err)
	}

	fmt.Printf("待发送的定时帖子 (%d 个):\n", len(posts))
	fmt.Println("--------------------------------------")
	for i, p := range posts {
		fmt.Printf("#%d ID: %d, 发送时间: %s, 文本: %.40q\n",
			i+1, p.ID, p.ScheduledAt.In(loc).Format("2006-01-02 15:04"), p.Text)
	}
}

func showScheduled(repo storage.ScheduledPostRepository, id uint, loc *time.Location) {
	post, err := repo.GetByID(context.Background(), id)
	if err != nil {
		log.Fatalf("获取定时帖子失败: %v", err)
	}

	fmt.Printf("定时帖子 %d 信息:\n", id)
	fmt.Println("--------------------------------------")
	fmt.Printf("发送时间: %s\n", post.ScheduledAt.In(loc).Format("2006-01-02 15:04"))
	fmt.Printf("创建时间: %s\n", post.CreatedAt.In(loc).Format("2006-01-02 15:04:05"))
	fmt.Printf("已发送: %v\n", post.Posted)

	payload, err := post.Payload()
	if err != nil {
		fmt.Printf("无法解析帖子内容: %v\n", err)
		return
	}
	fmt.Printf("标题: %s\n", payload.Subject)
	fmt.Printf("目标: %v\n", payload.Destinations)
	fmt.Printf("图片数量: %d\n", len(payload.Images))
	for _, im := range payload.Images {
		fmt.Printf("  %s (alt: %q)\n", im.URL, im.Alt)
	}
	fmt.Printf("文本:\n%s\n", payload.Text)
}
