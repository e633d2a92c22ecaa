package handler

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	appbook "github.com/xiebiao/bookcatalog/internal/application/book"
	"github.com/xiebiao/bookcatalog/internal/domain/book"
	"github.com/xiebiao/bookcatalog/internal/interface/http/dto"
	apperrors "github.com/xiebiao/bookcatalog/pkg/errors"
	"github.com/xiebiao/bookcatalog/pkg/response"
)

// BookHandler 图书HTTP处理器
// 请求体和响应体都是任意JSON对象,字段顺序与客户端提交顺序一致
type BookHandler struct {
	listBooks  *appbook.ListBooksUseCase
	getBook    *appbook.GetBookUseCase
	createBook *appbook.CreateBookUseCase
	updateBook *appbook.UpdateBookUseCase
	deleteBook *appbook.DeleteBookUseCase
}

// NewBookHandler 创建图书处理器
func NewBookHandler(
	listBooks *appbook.ListBooksUseCase,
	getBook *appbook.GetBookUseCase,
	createBook *appbook.CreateBookUseCase,
	updateBook *appbook.UpdateBookUseCase,
	deleteBook *appbook.DeleteBookUseCase,
) *BookHandler {
	return &BookHandler{
		listBooks:  listBooks,
		getBook:    getBook,
		createBook: createBook,
		updateBook: updateBook,
		deleteBook: deleteBook,
	}
}

// ListBooks 图书列表
// @Summary      图书列表
// @Description  field和searchTerm都给出时,field包含searchTerm(忽略大小写);只给field时匹配该字段为空串的图书;只给searchTerm时在title和author中查找
// @Tags         图书
// @Produce      json
// @Param        field       query string false "过滤字段"
// @Param        searchTerm  query string false "搜索词"
// @Success      200 {array}  object
// @Failure      400 {object} response.Response "字段路径非法"
// @Failure      503 {object} response.Response "存储不可用"
// @Router       /books [get]
func (h *BookHandler) ListBooks(c *gin.Context) {
	var query dto.ListBooksQuery
	if err := c.ShouldBindQuery(&query); err != nil {
		response.BindError(c, err)
		return
	}

	records, err := h.listBooks.Execute(c.Request.Context(), appbook.ListBooksRequest{
		Field:      query.Field,
		SearchTerm: query.SearchTerm,
	})
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Success(c, records)
}

// GetBook 图书详情
// @Summary      图书详情
// @Description  不存在时返回 null
// @Tags         图书
// @Produce      json
// @Param        id   path     string true "图书ID(24位十六进制)"
// @Success      200  {object} object
// @Failure      400  {object} response.Response "ID格式错误"
// @Failure      503  {object} response.Response "存储不可用"
// @Router       /books/{id} [get]
func (h *BookHandler) GetBook(c *gin.Context) {
	record, err := h.getBook.Execute(c.Request.Context(), c.Param("id"))
	if err != nil {
		response.Error(c, err)
		return
	}
	if record == nil {
		response.Success(c, nil)
		return
	}
	response.Success(c, record)
}

// CreateBook 新建图书
// @Summary      新建图书
// @Description  请求体原样写入,ID由存储分配
// @Tags         图书
// @Accept       json
// @Produce      json
// @Param        request body object true "图书记录"
// @Success      200 {object} dto.InsertResponse
// @Failure      400 {object} response.Response "请求体不是JSON对象"
// @Failure      409 {object} response.Response "ID已存在"
// @Failure      413 {object} response.Response "请求体过大"
// @Failure      503 {object} response.Response "存储不可用"
// @Router       /books [post]
func (h *BookHandler) CreateBook(c *gin.Context) {
	record, ok := bindRecord(c)
	if !ok {
		return
	}

	result, err := h.createBook.Execute(c.Request.Context(), record)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Success(c, result)
}

// UpdateBook 合并更新图书
// @Summary      合并更新图书
// @Description  只覆盖请求体中出现的字段;请求体中的_id必须与路径一致
// @Tags         图书
// @Accept       json
// @Produce      json
// @Param        id      path string true "图书ID"
// @Param        request body object true "要更新的字段"
// @Success      200 {object} dto.UpdateResponse
// @Failure      400 {object} response.Response "ID格式错误或请求体不是JSON对象"
// @Failure      409 {object} response.Response "试图修改ID"
// @Failure      413 {object} response.Response "请求体过大"
// @Failure      503 {object} response.Response "存储不可用"
// @Router       /books/{id} [patch]
func (h *BookHandler) UpdateBook(c *gin.Context) {
	payload, ok := bindRecord(c)
	if !ok {
		return
	}

	result, err := h.updateBook.Execute(c.Request.Context(), c.Param("id"), payload)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Success(c, result)
}

// DeleteBook 删除图书
// @Summary      删除图书
// @Description  重复删除返回 deletedCount=0
// @Tags         图书
// @Produce      json
// @Param        id  path     string true "图书ID"
// @Success      200 {object} dto.DeleteResponse
// @Failure      400 {object} response.Response "ID格式错误"
// @Failure      503 {object} response.Response "存储不可用"
// @Router       /books/{id} [delete]
func (h *BookHandler) DeleteBook(c *gin.Context) {
	result, err := h.deleteBook.Execute(c.Request.Context(), c.Param("id"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Success(c, result)
}

// bindRecord 读取请求体并解析为记录(顶层必须是JSON对象)
// 请求体大小由 middleware.BodyLimit 限制
func bindRecord(c *gin.Context) (*book.Record, bool) {
	body, err := c.GetRawData()
	if err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			response.Error(c, apperrors.ErrBodyTooLarge)
			return nil, false
		}
		response.BindError(c, err)
		return nil, false
	}
	record, err := book.DecodeRecord(body)
	if err != nil {
		response.Error(c, err)
		return nil, false
	}
	return record, true
}
