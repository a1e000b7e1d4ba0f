package core

import "context"

// MLService 是外部模型服务的领域接口。
//
// 使用场景：
//   - Embedding 后端：把兴趣文本/内容描述编码为稠密向量
//   - 外部模型服务：TensorFlow Serving、TorchServe、ONNX Runtime Server 等
//
// 实现：
//   - service.EmbeddingClient（REST）
type MLService interface {
	// Predict 批量推理
	Predict(ctx context.Context, req *MLPredictRequest) (*MLPredictResponse, error)

	// Health 健康检查（模型是否加载完成、可服务）
	Health(ctx context.Context) error

	// Close 关闭连接
	Close(ctx context.Context) error
}

// MLPredictRequest 预测请求
type MLPredictRequest struct {
	// Texts 待编码文本列表（embedding 场景）
	Texts []string

	// ModelName 模型名称（可选，如果服务支持多模型）
	ModelName string

	// ModelVersion 模型版本（可选）
	ModelVersion string

	// Params 额外参数（可选）
	Params map[string]interface{}
}

// MLPredictResponse 预测响应
type MLPredictResponse struct {
	// Embeddings 编码结果，与请求文本一一对应
	Embeddings [][]float64

	// Outputs 原始输出（可选，用于调试）
	Outputs interface{}

	// ModelVersion 模型版本（如果服务返回）
	ModelVersion string
}
