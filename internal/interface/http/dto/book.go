package dto

// ListBooksQuery GET /books 查询参数
// 指针区分"未提供"和"提供了空串";空串与未提供等价,由领域层统一处理
type ListBooksQuery struct {
	Field      *string `form:"field" example:"publisher"`
	SearchTerm *string `form:"searchTerm" example:"go"`
}

// InsertResponse 新建确认(文档用)
type InsertResponse struct {
	Acknowledged bool   `json:"acknowledged" example:"true"`
	InsertedID   string `json:"insertedId" example:"65f1a2b3c4d5e6f708192a3b"`
}

// UpdateResponse 更新确认(文档用)
type UpdateResponse struct {
	Acknowledged  bool    `json:"acknowledged" example:"true"`
	MatchedCount  int64   `json:"matchedCount" example:"1"`
	ModifiedCount int64   `json:"modifiedCount" example:"1"`
	UpsertedCount int64   `json:"upsertedCount" example:"0"`
	UpsertedID    *string `json:"upsertedId"`
}

// DeleteResponse 删除确认(文档用)
type DeleteResponse struct {
	Acknowledged bool  `json:"acknowledged" example:"true"`
	DeletedCount int64 `json:"deletedCount" example:"1"`
}

// HealthResponse 健康检查响应
type HealthResponse struct {
	Message string `json:"message" example:"pong"`
	Status  string `json:"status" example:"healthy"`
	Store   string `json:"store" example:"up"`
	Driver  string `json:"driver" example:"mongo"`
}
