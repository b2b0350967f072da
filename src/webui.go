package main

import (
	"fmt"
	"net/http"

	"FlightOnTime/src/storage"
)

// startWebUI 启动一个简单的Web界面来显示实时日志
// 参数:
//
//	logger: 日志记录器实例，用于订阅日志消息
//	addr: 监听地址，例如 ":8080"
func startWebUI(logger *storage.Logger, addr string) {
	mux := http.NewServeMux()
	mux.HandleFunc("/logs", logStreamHandler(logger))

	logger.Info("实时日志地址: http://" + addr + "/logs")
	if err := http.ListenAndServe(addr, mux); err != nil {
		logger.Error("日志服务退出: " + err.Error())
	}
}

// logStreamHandler 以 chunked 方式持续推送日志，客户端断开时退订
func logStreamHandler(logger *storage.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/plain; charset=utf-8")
		w.Header().Set("Transfer-Encoding", "chunked")

		logChan := logger.Subscribe()
		defer logger.Unsubscribe(logChan)

		for {
			select {
			case msg, ok := <-logChan:
				if !ok {
					return
				}
				if _, err := fmt.Fprint(w, msg); err != nil {
					return
				}
				if f, ok := w.(http.Flusher); ok {
					f.Flush()
				}
			case <-r.Context().Done():
				return
			}
		}
	}
}
