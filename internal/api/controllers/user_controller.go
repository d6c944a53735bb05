package controllers

import (
	"net/http"

	"chatbill/internal/models/request_models"
	"chatbill/internal/services"
	"chatbill/pkg/utils"

	"github.com/gin-gonic/gin"
)

type UserController struct {
	userService services.UserServiceInterface
}

func NewUserController(userService services.UserServiceInterface) *UserController {
	return &UserController{
		userService: userService,
	}
}

// UpdateField godoc
// @Summary Update one preference field
// @Tags Users
// @Param field path string true "Field name"
// @Success 200 {object} utils.APIResponse
// @Router /users/update/{field} [post]
func (u *UserController) UpdateField(c *gin.Context) {
	email := c.GetString("email")
	if email == "" {
		utils.RespondError(c, http.StatusUnauthorized, "Missing auth context")
		return
	}

	var req request_models.UpdateFieldRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		utils.RespondError(c, http.StatusBadRequest, "Invalid request format")
		return
	}

	field := services.UpdatableField(c.Param("field"))
	if err := u.userService.UpdateField(c.Request.Context(), email, field, req.Value); err != nil {
		utils.HandleServiceError(c, err)
		return
	}

	utils.RespondSuccess(c, nil, "Field updated successfully")
}

func (u *UserController) GetConfig(c *gin.Context) {
	email := c.GetString("email")
	if email == "" {
		utils.RespondError(c, http.StatusUnauthorized, "Missing auth context")
		return
	}

	cfg, err := u.userService.GetUserConfig(c.Request.Context(), email)
	if err != nil {
		utils.HandleServiceError(c, err)
		return
	}

	utils.RespondSuccess(c, cfg, "")
}
