package handler

import (
	"net/http"

	"github.com/SergeiKhy/geolink/internal/middleware"
	"github.com/SergeiKhy/geolink/internal/models"
	"github.com/SergeiKhy/geolink/internal/response"
	"github.com/SergeiKhy/geolink/internal/service"
	"github.com/gin-gonic/gin"
	"github.com/samber/lo"
	"go.uber.org/zap"
)

type LinkHandler struct {
	service service.LinkService
	logger  *zap.Logger
}

func NewLinkHandler(service service.LinkService, logger *zap.Logger) *LinkHandler {
	return &LinkHandler{service: service, logger: logger}
}

type CreateLinkRequest struct {
	DefaultURL  string `json:"defaultUrl" binding:"required,max=2048"`
	Title       string `json:"title" binding:"max=200"`
	CustomAlias string `json:"customAlias"`
	LinkType    string `json:"linkType" binding:"omitempty,oneof=normal geo"`
}

type AddGeoRuleRequest struct {
	Country        string `json:"country" binding:"required"`
	CountryCode    string `json:"countryCode" binding:"required,len=2"`
	DestinationURL string `json:"destinationUrl" binding:"required,max=2048"`
}

// LinkResponse is a link plus its public short URL.
type LinkResponse struct {
	*models.Link
	ShortURL string `json:"shortUrl"`
}

func (h *LinkHandler) toResponse(link *models.Link) LinkResponse {
	if link.GeoRules == nil {
		link.GeoRules = []models.GeoRule{}
	}
	return LinkResponse{Link: link, ShortURL: h.service.ShortURL(link.ShortCode)}
}

// CreateLink handles POST /url/shorten.
func (h *LinkHandler) CreateLink(c *gin.Context) {
	userID, _ := middleware.UserIDFromContext(c)

	var req CreateLinkRequest
	if err := bindJSON(c, &req); err != nil {
		_ = c.Error(err)
		return
	}

	link, err := h.service.CreateLink(c.Request.Context(), userID, &models.CreateLinkInput{
		DefaultURL:  req.DefaultURL,
		Title:       req.Title,
		CustomAlias: req.CustomAlias,
		LinkType:    models.LinkType(req.LinkType),
	})
	if err != nil {
		h.logger.Debug("failed to create link", zap.Int64("user_id", userID), zap.Error(err))
		_ = c.Error(err)
		return
	}

	c.JSON(http.StatusCreated, response.OK(h.toResponse(link), "URL shortened successfully"))
}

// ListLinks handles GET /url/get-urls.
func (h *LinkHandler) ListLinks(c *gin.Context) {
	h.list(c, nil)
}

// ListGeoLinks handles GET /url/get-geo-urls.
func (h *LinkHandler) ListGeoLinks(c *gin.Context) {
	h.list(c, lo.ToPtr(models.LinkTypeGeo))
}

func (h *LinkHandler) list(c *gin.Context, linkType *models.LinkType) {
	userID, _ := middleware.UserIDFromContext(c)

	links, err := h.service.ListLinks(c.Request.Context(), userID, linkType)
	if err != nil {
		_ = c.Error(err)
		return
	}

	out := lo.Map(links, func(l models.Link, _ int) LinkResponse { return h.toResponse(&l) })
	c.JSON(http.StatusOK, response.OK(out, "URLs fetched successfully"))
}

// DeleteLink handles GET /url/delete/:id and DELETE /url/:id.
func (h *LinkHandler) DeleteLink(c *gin.Context) {
	userID, _ := middleware.UserIDFromContext(c)

	linkID, err := int64Param(c, "id", errInvalidLinkID)
	if err != nil {
		_ = c.Error(err)
		return
	}

	if err := h.service.DeleteLink(c.Request.Context(), userID, linkID); err != nil {
		_ = c.Error(err)
		return
	}

	c.JSON(http.StatusOK, response.OK(gin.H{"id": linkID}, "URL deleted successfully"))
}

// AddGeoRule handles POST /url/:id/add-geo-rule.
func (h *LinkHandler) AddGeoRule(c *gin.Context) {
	userID, _ := middleware.UserIDFromContext(c)

	linkID, err := int64Param(c, "id", errInvalidLinkID)
	if err != nil {
		_ = c.Error(err)
		return
	}

	var req AddGeoRuleRequest
	if err := bindJSON(c, &req); err != nil {
		_ = c.Error(err)
		return
	}

	link, err := h.service.AddGeoRule(c.Request.Context(), userID, linkID, &models.GeoRuleInput{
		Country:        req.Country,
		CountryCode:    req.CountryCode,
		DestinationURL: req.DestinationURL,
	})
	if err != nil {
		_ = c.Error(err)
		return
	}

	c.JSON(http.StatusOK, response.OK(h.toResponse(link), "Geo rule added successfully"))
}

// RemoveGeoRule handles GET|DELETE /url/:id/remove-geo-rule/:rule_id.
func (h *LinkHandler) RemoveGeoRule(c *gin.Context) {
	userID, _ := middleware.UserIDFromContext(c)

	linkID, err := int64Param(c, "id", errInvalidLinkID)
	if err != nil {
		_ = c.Error(err)
		return
	}
	ruleID, err := uuidParam(c, "rule_id")
	if err != nil {
		_ = c.Error(err)
		return
	}

	link, err := h.service.RemoveGeoRule(c.Request.Context(), userID, linkID, ruleID)
	if err != nil {
		_ = c.Error(err)
		return
	}

	c.JSON(http.StatusOK, response.OK(h.toResponse(link), "Geo rule removed successfully"))
}
