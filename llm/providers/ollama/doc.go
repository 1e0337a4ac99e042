/*
Package ollama 提供本地 Ollama 推理服务（/api/generate）的 Adapter 实现。

请求与响应直接复用 github.com/ollama/ollama/api 的 GenerateRequest /
GenerateResponse 类型：截图以 ImageData 原始字节放入 images 数组，
JSON 编码时自动转为 base64；stream 固定为 false。

本地推理较慢，默认超时 120s。模型回复常被 Markdown 围栏包裹，
由 action.Normalize 负责剥离。
*/
package ollama
