// 版权所有 2026 ActionGate Authors. 版权所有。
// 此源代码的使用由 MIT 许可规范,该许可可以是
// 在LICENSE文件中找到。

/*
包 server 提供 HTTP/HTTPS 监听的生命周期管理。

# 核心类型

  - Manager：封装 net/http.Server，提供非阻塞 Start、阻塞式 Run
    （ctx 结束后优雅关闭）与带超时的 Shutdown。
  - Config：监听地址、各类超时、最大请求头，以及可选的 *tls.Config。

网关进程通常持有两个 Manager：api 监听与 metrics 监听。
*/
package server
