package api

import (
	"io"
	"net/http"

	"bookstore-backend/internal/apperr"
	"bookstore-backend/internal/models"

	"github.com/gin-gonic/gin"
)

const maxCoverBytes = 5 << 20

func (h *Handler) listBooks(c *gin.Context) {
	books, err := h.svc.Books.List(c.Request.Context())
	if err != nil {
		fail(c, err)
		return
	}
	c.JSON(http.StatusOK, books)
}

func (h *Handler) searchBooks(c *gin.Context) {
	books, err := h.svc.Books.Search(c.Request.Context(), c.Query("q"))
	if err != nil {
		fail(c, err)
		return
	}
	c.JSON(http.StatusOK, books)
}

func (h *Handler) countBooks(c *gin.Context) {
	n, err := h.svc.Books.Count(c.Request.Context())
	if err != nil {
		fail(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"count": n})
}

func (h *Handler) getBook(c *gin.Context) {
	id, ok := paramID(c, "bookId")
	if !ok {
		return
	}
	b, err := h.svc.Books.Get(c.Request.Context(), id, optionalUser(c))
	if err != nil {
		fail(c, err)
		return
	}
	c.JSON(http.StatusOK, b)
}

// ----- Reviews -----

func (h *Handler) addReview(c *gin.Context) {
	bookID, ok := paramID(c, "bookId")
	if !ok {
		return
	}
	var req models.ReviewRequest
	if !bind(c, &req) {
		return
	}
	r, err := h.svc.Books.AddReview(c.Request.Context(), bookID, currentUser(c), req)
	if err != nil {
		fail(c, err)
		return
	}
	c.JSON(http.StatusCreated, gin.H{"message": "Review added", "review": r})
}

func (h *Handler) updateReview(c *gin.Context) {
	bookID, ok := paramID(c, "bookId")
	if !ok {
		return
	}
	reviewID, ok := paramID(c, "reviewId")
	if !ok {
		return
	}
	var req models.ReviewRequest
	if !bind(c, &req) {
		return
	}
	r, err := h.svc.Books.UpdateReview(c.Request.Context(), bookID, reviewID, currentUser(c), req)
	if err != nil {
		fail(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "Review updated", "review": r})
}

func (h *Handler) deleteReview(c *gin.Context) {
	bookID, ok := paramID(c, "bookId")
	if !ok {
		return
	}
	reviewID, ok := paramID(c, "reviewId")
	if !ok {
		return
	}
	if err := h.svc.Books.DeleteReview(c.Request.Context(), bookID, reviewID, currentUser(c)); err != nil {
		fail(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "Review deleted"})
}

// ----- Admin catalogue -----

func (h *Handler) createBook(c *gin.Context) {
	var req models.BookRequest
	if !bind(c, &req) {
		return
	}
	b, err := h.svc.Books.Create(c.Request.Context(), req)
	if err != nil {
		fail(c, err)
		return
	}
	c.JSON(http.StatusCreated, b)
}

func (h *Handler) updateBook(c *gin.Context) {
	id, ok := paramID(c, "bookId")
	if !ok {
		return
	}
	var req models.BookRequest
	if !bind(c, &req) {
		return
	}
	b, err := h.svc.Books.Update(c.Request.Context(), id, req)
	if err != nil {
		fail(c, err)
		return
	}
	c.JSON(http.StatusOK, b)
}

func (h *Handler) deleteBook(c *gin.Context) {
	id, ok := paramID(c, "bookId")
	if !ok {
		return
	}
	if err := h.svc.Books.Delete(c.Request.Context(), id); err != nil {
		fail(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "Book deleted"})
}

func (h *Handler) uploadCover(c *gin.Context) {
	id, ok := paramID(c, "bookId")
	if !ok {
		return
	}
	fh, err := c.FormFile("cover")
	if err != nil {
		fail(c, apperr.New("cover file is required", apperr.ErrBadRequest))
		return
	}
	if fh.Size > maxCoverBytes {
		fail(c, apperr.New("cover must be at most 5MB", apperr.ErrBadRequest))
		return
	}
	f, err := fh.Open()
	if err != nil {
		fail(c, err)
		return
	}
	defer f.Close()
	data, err := io.ReadAll(io.LimitReader(f, maxCoverBytes))
	if err != nil {
		fail(c, err)
		return
	}

	b, err := h.svc.Books.UploadCover(c.Request.Context(), id, data)
	if err != nil {
		fail(c, err)
		return
	}
	c.JSON(http.StatusOK, b)
}
