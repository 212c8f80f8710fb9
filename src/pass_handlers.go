package main

import (
	"context"
	"errors"
	"fmt"
	"log"
	"net/http"
	"time"

	"github.com/IndSumit07/SPass/src/lib"
	"github.com/IndSumit07/SPass/src/lib/mailer"
	"github.com/IndSumit07/SPass/src/types"
	"github.com/IndSumit07/SPass/src/utils"
	"github.com/gin-gonic/gin"
)

func passHandlers(g *gin.RouterGroup) {
	g.POST("/passes/issue", func(ctx *gin.Context) {
		var body types.IssuePassRequestBody
		if err := ctx.ShouldBindJSON(&body); err != nil {
			ctx.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
			return
		}
		pass, already, err := utils.IssuePass(body.EventID, body.UserID)
		if err != nil {
			switch {
			case errors.Is(err, utils.ErrEventNotFound), errors.Is(err, utils.ErrUserNotFound):
				ctx.JSON(http.StatusNotFound, gin.H{"success": false, "message": "Event or User not found"})
			case errors.Is(err, utils.ErrCapacityExceeded):
				ctx.JSON(http.StatusBadRequest, gin.H{"success": false, "message": "Event is at full capacity"})
			default:
				log.Printf("Error issuing pass: %s\n", err.Error())
				ctx.JSON(http.StatusInternalServerError, gin.H{"success": false, "message": "Something went wrong"})
			}
			return
		}
		if already {
			ctx.JSON(http.StatusOK, gin.H{
				"success": false,
				"message": "User already has a pass for this event",
				"pass":    utils.EnrichPass(pass),
			})
			return
		}
		go mailer.SendPassIssuedEmail(pass.User.Name, pass.User.Email, pass.Event.Name, pass.PassID)
		ctx.JSON(http.StatusCreated, gin.H{
			"success": true,
			"message": "Pass issued successfully",
			"pass":    utils.EnrichPass(pass),
		})
	})

	g.POST("/passes/scan", func(ctx *gin.Context) {
		var body types.ScanPassRequestBody
		if err := ctx.ShouldBindJSON(&body); err != nil {
			ctx.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
			return
		}
		pass, err := utils.ScanPass(body.PassID, body.EventID)
		if err != nil {
			switch {
			case errors.Is(err, utils.ErrEventNotFound):
				ctx.JSON(http.StatusNotFound, gin.H{"success": false, "message": "Event not found"})
			case errors.Is(err, utils.ErrInvalidPass):
				ctx.JSON(http.StatusNotFound, gin.H{"success": false, "message": "Invalid pass"})
			case errors.Is(err, utils.ErrPassAlreadyUsed):
				ctx.JSON(http.StatusOK, gin.H{"success": false, "message": "Pass already used", "pass": utils.EnrichScannedPass(pass)})
			case errors.Is(err, utils.ErrPassCancelled):
				ctx.JSON(http.StatusOK, gin.H{"success": false, "message": "Pass cancelled", "pass": utils.EnrichScannedPass(pass)})
			case errors.Is(err, utils.ErrPassExpired):
				ctx.JSON(http.StatusOK, gin.H{"success": false, "message": "Pass expired", "pass": utils.EnrichScannedPass(pass)})
			default:
				log.Printf("Error scanning pass: %s\n", err.Error())
				ctx.JSON(http.StatusInternalServerError, gin.H{"success": false, "message": "Something went wrong"})
			}
			return
		}
		ctx.JSON(http.StatusOK, gin.H{
			"success": true,
			"message": "Pass validated successfully",
			"pass":    utils.EnrichScannedPass(pass),
		})
	})

	g.GET("/passes/user-passes", func(ctx *gin.Context) {
		userId := ctx.GetUint("id")
		passes, err := utils.GetUserPasses(userId)
		if err != nil {
			log.Printf("Error listing passes for user %d: %s\n", userId, err.Error())
			ctx.JSON(http.StatusInternalServerError, gin.H{"success": false, "message": "Something went wrong"})
			return
		}
		ctx.JSON(http.StatusOK, gin.H{"success": true, "passes": passes})
	})

	g.GET("/passes/:passId/image", func(ctx *gin.Context) {
		var params types.PassURIParams
		if err := ctx.ShouldBindUri(&params); err != nil {
			ctx.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
			return
		}
		userId := ctx.GetUint("id")
		// Key includes the owner so a cache hit never leaks another
		// user's artifact.
		cacheKey := fmt.Sprintf("passimage_%d_%s", userId, params.PassID)
		rdb := lib.GetRedisClient()
		if rdb != nil {
			if cached, err := rdb.Get(context.Background(), cacheKey).Result(); err == nil {
				ctx.JSON(http.StatusOK, gin.H{"success": true, "image": cached})
				return
			}
		}
		pass, err := utils.GetPassForUser(params.PassID, userId)
		if err != nil {
			if errors.Is(err, utils.ErrInvalidPass) {
				ctx.JSON(http.StatusNotFound, gin.H{"success": false, "message": "Invalid pass"})
				return
			}
			log.Printf("Error loading pass %s: %s\n", params.PassID, err.Error())
			ctx.JSON(http.StatusInternalServerError, gin.H{"success": false, "message": "Something went wrong"})
			return
		}
		if rdb != nil && pass.PassImage != "" {
			if err := rdb.SetEx(context.Background(), cacheKey, pass.PassImage, 2*time.Hour).Err(); err != nil {
				log.Printf("Error caching pass image: %s\n", err.Error())
			}
		}
		ctx.JSON(http.StatusOK, gin.H{"success": true, "image": pass.PassImage})
	})

	g.POST("/passes/:passId/cancel", func(ctx *gin.Context) {
		var params types.PassURIParams
		if err := ctx.ShouldBindUri(&params); err != nil {
			ctx.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
			return
		}
		userId := ctx.GetUint("id")
		pass, err := utils.CancelPass(params.PassID, userId)
		if err != nil {
			switch {
			case errors.Is(err, utils.ErrInvalidPass):
				ctx.JSON(http.StatusNotFound, gin.H{"success": false, "message": "Invalid pass"})
			case errors.Is(err, utils.ErrPassAlreadyUsed):
				ctx.JSON(http.StatusOK, gin.H{"success": false, "message": "Pass already used", "pass": pass})
			case errors.Is(err, utils.ErrPassExpired):
				ctx.JSON(http.StatusOK, gin.H{"success": false, "message": "Pass expired", "pass": pass})
			case errors.Is(err, utils.ErrPassCancelled):
				ctx.JSON(http.StatusOK, gin.H{"success": false, "message": "Pass cancelled", "pass": pass})
			default:
				log.Printf("Error cancelling pass %s: %s\n", params.PassID, err.Error())
				ctx.JSON(http.StatusInternalServerError, gin.H{"success": false, "message": "Something went wrong"})
			}
			return
		}
		ctx.JSON(http.StatusOK, gin.H{"success": true, "message": "Pass cancelled successfully", "pass": pass})
	})
}
