package main

import (
	"errors"
	"log"
	"net/http"

	"github.com/IndSumit07/SPass/src/db"
	"github.com/IndSumit07/SPass/src/models"
	"github.com/IndSumit07/SPass/src/types"
	"github.com/IndSumit07/SPass/src/utils"
	"github.com/gin-gonic/gin"
)

func eventHandlers(g *gin.RouterGroup) {
	g.POST("/events", func(ctx *gin.Context) {
		var body types.CreateEventRequestBody
		if err := ctx.ShouldBindJSON(&body); err != nil {
			ctx.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
			return
		}
		creatorId := ctx.GetUint("id")
		event, err := utils.CreateNewEvent(&body, creatorId)
		if err != nil {
			log.Printf("Error creating event: %s\n", err.Error())
			ctx.JSON(http.StatusInternalServerError, gin.H{"error": "Something went wrong"})
			return
		}
		ctx.JSON(http.StatusCreated, gin.H{"success": true, "id": event.ID, "event": event})
	})

	g.PATCH("/events/:id/publish", func(ctx *gin.Context) {
		var params types.SimpleRequestParams
		if err := ctx.ShouldBindUri(&params); err != nil {
			ctx.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
			return
		}
		event, err := utils.GetEvent(params.ID)
		if err != nil {
			ctx.JSON(http.StatusNotFound, gin.H{"error": "Event not found"})
			return
		}
		if event.CreatedBy != ctx.GetUint("id") {
			ctx.JSON(http.StatusForbidden, gin.H{"error": "Not the event creator"})
			return
		}
		if err := utils.PublishEvent(params.ID); err != nil {
			if errors.Is(err, utils.ErrEventNotFound) {
				ctx.JSON(http.StatusBadRequest, gin.H{"error": "Event cannot be published"})
				return
			}
			log.Printf("Error publishing event %d: %s\n", params.ID, err.Error())
			ctx.JSON(http.StatusInternalServerError, gin.H{"error": "Something went wrong"})
			return
		}
		ctx.JSON(http.StatusOK, gin.H{"success": true, "message": "Event published"})
	})

	g.PATCH("/events/:id/status", func(ctx *gin.Context) {
		var params types.SimpleRequestParams
		if err := ctx.ShouldBindUri(&params); err != nil {
			ctx.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
			return
		}
		var body struct {
			Status types.EventStatus `json:"status" binding:"required,oneof=draft published ongoing completed"`
		}
		if err := ctx.ShouldBindJSON(&body); err != nil {
			ctx.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
			return
		}
		event, err := utils.GetEvent(params.ID)
		if err != nil {
			ctx.JSON(http.StatusNotFound, gin.H{"error": "Event not found"})
			return
		}
		if event.CreatedBy != ctx.GetUint("id") {
			ctx.JSON(http.StatusForbidden, gin.H{"error": "Not the event creator"})
			return
		}
		d := db.GetDb()
		if err := d.Model(&models.Event{}).Where("id = ?", params.ID).Update("status", body.Status).Error; err != nil {
			log.Printf("Error updating event %d status: %s\n", params.ID, err.Error())
			ctx.JSON(http.StatusInternalServerError, gin.H{"error": "Something went wrong"})
			return
		}
		ctx.JSON(http.StatusOK, gin.H{"success": true})
	})
}
