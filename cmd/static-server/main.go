package main

import (
	"flag"
	"fmt"
	"net/http"
	"os"
	"path/filepath"
	"strings"
	"time"
)

// 前端静态资源服务：
// - 无扩展名或目录路径回退到 index.html（前端路由）
// - 解析真实路径，禁止访问资源目录之外的文件

var (
	listenAddr = flag.String("listen", ":8081", "HTTP listen address")
	publicDir  = flag.String("dir", "static-build", "静态资源目录")
)

func newStaticHandler(root string) (http.HandlerFunc, error) {
	realRoot, err := filepath.EvalSymlinks(root)
	if err != nil {
		return nil, fmt.Errorf("resolve public dir: %w", err)
	}

	return func(w http.ResponseWriter, r *http.Request) {
		name := filepath.Join(realRoot, filepath.FromSlash(r.URL.Path))
		if strings.HasSuffix(r.URL.Path, "/") || filepath.Ext(name) == "" {
			name = filepath.Join(name, "index.html")
		}

		realPath, err := filepath.EvalSymlinks(name)
		if err != nil {
			http.Error(w, "Not Found", http.StatusNotFound)
			return
		}
		if realPath != realRoot && !strings.HasPrefix(realPath, realRoot+string(filepath.Separator)) {
			http.Error(w, "Not Found", http.StatusNotFound)
			return
		}

		content, err := os.ReadFile(realPath)
		if err != nil {
			if os.IsNotExist(err) {
				http.Error(w, "Not Found", http.StatusNotFound)
			} else {
				http.Error(w, "Server Error", http.StatusInternalServerError)
			}
			return
		}

		w.Header().Set("Content-Type", contentTypeFor(realPath))
		_, _ = w.Write(content)
	}, nil
}

func contentTypeFor(name string) string {
	switch strings.ToLower(filepath.Ext(name)) {
	case ".html":
		return "text/html"
	case ".css":
		return "text/css"
	case ".js":
		return "application/javascript"
	case ".json":
		return "application/json"
	case ".png":
		return "image/png"
	case ".jpg", ".jpeg":
		return "image/jpeg"
	case ".gif":
		return "image/gif"
	case ".svg":
		return "image/svg+xml"
	case ".woff":
		return "font/woff"
	case ".woff2":
		return "font/woff2"
	case ".ttf":
		return "font/ttf"
	case ".eot":
		return "application/vnd.ms-fontobject"
	default:
		return "application/octet-stream"
	}
}

func main() {
	flag.Parse()

	handler, err := newStaticHandler(*publicDir)
	if err != nil {
		panic(err)
	}

	srv := &http.Server{
		Addr:              *listenAddr,
		Handler:           handler,
		ReadHeaderTimeout: 5 * time.Second,
	}

	fmt.Printf("static-server listening on %s\n", *listenAddr)
	if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		panic(err)
	}
}
