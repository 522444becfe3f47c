package handlers

import (
	"context"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/mindbridge-app/mindbridge-backend/internal/database"
	"github.com/mindbridge-app/mindbridge-backend/internal/models"
	"github.com/mindbridge-app/mindbridge-backend/internal/services"
	"github.com/mindbridge-app/mindbridge-backend/pkg/apperrors"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

type PostRequest struct {
	Title         string `json:"title,omitempty"`
	Body          string `json:"body"`
	AttachmentURL string `json:"attachment_url,omitempty"`
}

// CreatePost writes a post in a circle the caller belongs to and notifies
// the other members.
func CreatePost(w http.ResponseWriter, r *http.Request) {
	userID, ok := requireAuth(w, r)
	if !ok {
		return
	}

	circleID, err := parseObjectID(chi.URLParam(r, "id"))
	if err != nil {
		writeError(w, err)
		return
	}

	var req PostRequest
	if err := decodeBody(r, &req); err != nil {
		writeError(w, err)
		return
	}
	req.Title = strings.TrimSpace(req.Title)
	req.Body = strings.TrimSpace(req.Body)
	if req.Body == "" && req.AttachmentURL == "" {
		writeError(w, apperrors.Validation("Post body or attachment is required"))
		return
	}

	ctx, cancel := requestContext()
	defer cancel()

	circle, err := loadCircle(ctx, circleID)
	if err != nil {
		writeError(w, err)
		return
	}
	if !circle.IsMember(userID) {
		writeError(w, apperrors.Forbidden("Only circle members can post"))
		return
	}

	now := time.Now().UTC()
	post := models.Post{
		CreatedAt:     now,
		UpdatedAt:     now,
		Circle:        circleID,
		Author:        userID,
		Title:         req.Title,
		Body:          req.Body,
		AttachmentURL: req.AttachmentURL,
		Likes:         []primitive.ObjectID{},
		Comments:      []models.Comment{},
	}

	result, err := database.DB.Collection("posts").InsertOne(ctx, &post)
	if err != nil {
		writeError(w, apperrors.Wrap(apperrors.CodeInternal, "Failed to create post", err))
		return
	}
	post.ID = result.InsertedID.(primitive.ObjectID)

	for _, memberID := range circle.Members {
		if memberID == userID {
			continue
		}
		services.Notifications.EmitTo(ctx, memberID, string(models.ActionNewPost),
			fmt.Sprintf("New post in %s", circle.Title),
			models.PostMeta(models.ActionNewPost, circle.ID, post.ID))
	}

	writeJSON(w, http.StatusCreated, map[string]interface{}{
		"success": true,
		"message": "Post created",
		"post":    post,
	})
}

// ListCirclePosts returns a circle's posts, newest first. Private circles
// require membership.
func ListCirclePosts(w http.ResponseWriter, r *http.Request) {
	userID, ok := requireAuth(w, r)
	if !ok {
		return
	}

	circleID, err := parseObjectID(chi.URLParam(r, "id"))
	if err != nil {
		writeError(w, err)
		return
	}

	ctx, cancel := requestContext()
	defer cancel()

	circle, err := loadCircle(ctx, circleID)
	if err != nil {
		writeError(w, err)
		return
	}
	if circle.Visibility == models.CirclePrivate && !circle.IsMember(userID) {
		writeError(w, apperrors.Forbidden("Only members can view this circle's posts"))
		return
	}

	opts := options.Find().SetSort(bson.D{{Key: "created_at", Value: -1}})
	cursor, err := database.DB.Collection("posts").Find(ctx, bson.M{"circle": circleID}, opts)
	if err != nil {
		writeError(w, apperrors.Wrap(apperrors.CodeInternal, "Failed to list posts", err))
		return
	}
	defer cursor.Close(ctx)

	posts := []models.Post{}
	if err := cursor.All(ctx, &posts); err != nil {
		writeError(w, apperrors.Wrap(apperrors.CodeInternal, "Failed to read posts", err))
		return
	}

	writeJSON(w, http.StatusOK, map[string]interface{}{
		"success": true,
		"posts":   posts,
	})
}

// MyPosts returns the caller's own posts across circles, newest first.
func MyPosts(w http.ResponseWriter, r *http.Request) {
	userID, ok := requireAuth(w, r)
	if !ok {
		return
	}

	ctx, cancel := requestContext()
	defer cancel()

	opts := options.Find().SetSort(bson.D{{Key: "created_at", Value: -1}})
	cursor, err := database.DB.Collection("posts").Find(ctx, bson.M{"author": userID}, opts)
	if err != nil {
		writeError(w, apperrors.Wrap(apperrors.CodeInternal, "Failed to list posts", err))
		return
	}
	defer cursor.Close(ctx)

	posts := []models.Post{}
	if err := cursor.All(ctx, &posts); err != nil {
		writeError(w, apperrors.Wrap(apperrors.CodeInternal, "Failed to read posts", err))
		return
	}

	writeJSON(w, http.StatusOK, map[string]interface{}{
		"success": true,
		"posts":   posts,
	})
}

// LikePost adds the caller to the post's like set. Idempotent.
func LikePost(w http.ResponseWriter, r *http.Request) {
	userID, ok := requireAuth(w, r)
	if !ok {
		return
	}

	postID, err := parseObjectID(chi.URLParam(r, "id"))
	if err != nil {
		writeError(w, err)
		return
	}

	ctx, cancel := requestContext()
	defer cancel()

	result, err := database.DB.Collection("posts").UpdateOne(ctx, bson.M{"_id": postID},
		bson.M{"$addToSet": bson.M{"likes": userID}})
	if err != nil {
		writeError(w, apperrors.Wrap(apperrors.CodeInternal, "Failed to like post", err))
		return
	}
	if result.MatchedCount == 0 {
		writeError(w, apperrors.NotFound("Post not found"))
		return
	}

	writeJSON(w, http.StatusOK, map[string]interface{}{
		"success": true,
		"message": "Post liked",
	})
}

// UnlikePost removes the caller from the post's like set. Idempotent.
func UnlikePost(w http.ResponseWriter, r *http.Request) {
	userID, ok := requireAuth(w, r)
	if !ok {
		return
	}

	postID, err := parseObjectID(chi.URLParam(r, "id"))
	if err != nil {
		writeError(w, err)
		return
	}

	ctx, cancel := requestContext()
	defer cancel()

	result, err := database.DB.Collection("posts").UpdateOne(ctx, bson.M{"_id": postID},
		bson.M{"$pull": bson.M{"likes": userID}})
	if err != nil {
		writeError(w, apperrors.Wrap(apperrors.CodeInternal, "Failed to unlike post", err))
		return
	}
	if result.MatchedCount == 0 {
		writeError(w, apperrors.NotFound("Post not found"))
		return
	}

	writeJSON(w, http.StatusOK, map[string]interface{}{
		"success": true,
		"message": "Post unliked",
	})
}

// EditPost lets the author change title, body, and attachment.
func EditPost(w http.ResponseWriter, r *http.Request) {
	userID, ok := requireAuth(w, r)
	if !ok {
		return
	}

	postID, err := parseObjectID(chi.URLParam(r, "id"))
	if err != nil {
		writeError(w, err)
		return
	}

	var req PostRequest
	if err := decodeBody(r, &req); err != nil {
		writeError(w, err)
		return
	}
	req.Title = strings.TrimSpace(req.Title)
	req.Body = strings.TrimSpace(req.Body)
	if req.Body == "" && req.AttachmentURL == "" {
		writeError(w, apperrors.Validation("Post body or attachment is required"))
		return
	}

	ctx, cancel := requestContext()
	defer cancel()

	post, err := loadPost(ctx, postID)
	if err != nil {
		writeError(w, err)
		return
	}
	if post.Author != userID {
		writeError(w, apperrors.Forbidden("Only the author can edit this post"))
		return
	}

	if _, err := database.DB.Collection("posts").UpdateOne(ctx, bson.M{"_id": postID}, bson.M{
		"$set": bson.M{
			"title":          req.Title,
			"body":           req.Body,
			"attachment_url": req.AttachmentURL,
			"updated_at":     time.Now().UTC(),
		},
	}); err != nil {
		writeError(w, apperrors.Wrap(apperrors.CodeInternal, "Failed to update post", err))
		return
	}

	writeJSON(w, http.StatusOK, map[string]interface{}{
		"success": true,
		"message": "Post updated",
	})
}

// DeletePost removes a post. Allowed for the author or a circle admin.
func DeletePost(w http.ResponseWriter, r *http.Request) {
	userID, ok := requireAuth(w, r)
	if !ok {
		return
	}

	postID, err := parseObjectID(chi.URLParam(r, "id"))
	if err != nil {
		writeError(w, err)
		return
	}

	ctx, cancel := requestContext()
	defer cancel()

	post, err := loadPost(ctx, postID)
	if err != nil {
		writeError(w, err)
		return
	}
	if post.Author != userID {
		circle, err := loadCircle(ctx, post.Circle)
		if err != nil || !circle.IsAdmin(userID) {
			writeError(w, apperrors.Forbidden("Only the author or a circle admin can delete this post"))
			return
		}
	}

	if _, err := database.DB.Collection("posts").DeleteOne(ctx, bson.M{"_id": postID}); err != nil {
		writeError(w, apperrors.Wrap(apperrors.CodeInternal, "Failed to delete post", err))
		return
	}

	writeJSON(w, http.StatusOK, map[string]interface{}{
		"success": true,
		"message": "Post deleted",
	})
}

type CommentRequest struct {
	Body string `json:"body"`
}

// AddComment appends a comment to the post and notifies the post author.
func AddComment(w http.ResponseWriter, r *http.Request) {
	userID, ok := requireAuth(w, r)
	if !ok {
		return
	}

	postID, err := parseObjectID(chi.URLParam(r, "id"))
	if err != nil {
		writeError(w, err)
		return
	}

	var req CommentRequest
	if err := decodeBody(r, &req); err != nil {
		writeError(w, err)
		return
	}
	req.Body = strings.TrimSpace(req.Body)
	if req.Body == "" {
		writeError(w, apperrors.Validation("Comment body is required"))
		return
	}

	ctx, cancel := requestContext()
	defer cancel()

	post, err := loadPost(ctx, postID)
	if err != nil {
		writeError(w, err)
		return
	}

	circle, err := loadCircle(ctx, post.Circle)
	if err != nil {
		writeError(w, err)
		return
	}
	if !circle.IsMember(userID) {
		writeError(w, apperrors.Forbidden("Only circle members can comment"))
		return
	}

	now := time.Now().UTC()
	comment := models.Comment{
		ID:        primitive.NewObjectID(),
		CreatedAt: now,
		UpdatedAt: now,
		Author:    userID,
		Body:      req.Body,
	}

	if _, err := database.DB.Collection("posts").UpdateOne(ctx, bson.M{"_id": postID}, bson.M{
		"$push": bson.M{"comments": comment},
		"$set":  bson.M{"updated_at": now},
	}); err != nil {
		writeError(w, apperrors.Wrap(apperrors.CodeInternal, "Failed to add comment", err))
		return
	}

	if post.Author != userID {
		services.Notifications.EmitTo(ctx, post.Author, string(models.ActionNewComment),
			fmt.Sprintf("New comment on your post in %s", circle.Title),
			models.PostMeta(models.ActionNewComment, circle.ID, post.ID))
	}

	writeJSON(w, http.StatusCreated, map[string]interface{}{
		"success": true,
		"message": "Comment added",
		"comment": comment,
	})
}

// EditComment lets the comment author change its body.
func EditComment(w http.ResponseWriter, r *http.Request) {
	userID, ok := requireAuth(w, r)
	if !ok {
		return
	}

	postID, err := parseObjectID(chi.URLParam(r, "id"))
	if err != nil {
		writeError(w, err)
		return
	}
	commentID, err := parseObjectID(chi.URLParam(r, "commentId"))
	if err != nil {
		writeError(w, err)
		return
	}

	var req CommentRequest
	if err := decodeBody(r, &req); err != nil {
		writeError(w, err)
		return
	}
	req.Body = strings.TrimSpace(req.Body)
	if req.Body == "" {
		writeError(w, apperrors.Validation("Comment body is required"))
		return
	}

	ctx, cancel := requestContext()
	defer cancel()

	post, err := loadPost(ctx, postID)
	if err != nil {
		writeError(w, err)
		return
	}
	comment := post.FindComment(commentID)
	if comment == nil {
		writeError(w, apperrors.NotFound("Comment not found"))
		return
	}
	if comment.Author != userID {
		writeError(w, apperrors.Forbidden("Only the comment author can edit it"))
		return
	}

	if _, err := database.DB.Collection("posts").UpdateOne(ctx,
		bson.M{"_id": postID, "comments._id": commentID},
		bson.M{"$set": bson.M{
			"comments.$.body":       req.Body,
			"comments.$.updated_at": time.Now().UTC(),
		}},
	); err != nil {
		writeError(w, apperrors.Wrap(apperrors.CodeInternal, "Failed to edit comment", err))
		return
	}

	writeJSON(w, http.StatusOK, map[string]interface{}{
		"success": true,
		"message": "Comment updated",
	})
}

// DeleteComment removes a comment. Allowed for the comment author, the post
// author, or a circle admin.
func DeleteComment(w http.ResponseWriter, r *http.Request) {
	userID, ok := requireAuth(w, r)
	if !ok {
		return
	}

	postID, err := parseObjectID(chi.URLParam(r, "id"))
	if err != nil {
		writeError(w, err)
		return
	}
	commentID, err := parseObjectID(chi.URLParam(r, "commentId"))
	if err != nil {
		writeError(w, err)
		return
	}

	ctx, cancel := requestContext()
	defer cancel()

	post, err := loadPost(ctx, postID)
	if err != nil {
		writeError(w, err)
		return
	}
	comment := post.FindComment(commentID)
	if comment == nil {
		writeError(w, apperrors.NotFound("Comment not found"))
		return
	}

	allowed := comment.Author == userID || post.Author == userID
	if !allowed {
		circle, err := loadCircle(ctx, post.Circle)
		allowed = err == nil && circle.IsAdmin(userID)
	}
	if !allowed {
		writeError(w, apperrors.Forbidden("Not allowed to delete this comment"))
		return
	}

	if _, err := database.DB.Collection("posts").UpdateOne(ctx, bson.M{"_id": postID},
		bson.M{"$pull": bson.M{"comments": bson.M{"_id": commentID}}}); err != nil {
		writeError(w, apperrors.Wrap(apperrors.CodeInternal, "Failed to delete comment", err))
		return
	}

	writeJSON(w, http.StatusOK, map[string]interface{}{
		"success": true,
		"message": "Comment deleted",
	})
}

func loadPost(ctx context.Context, id primitive.ObjectID) (*models.Post, error) {
	var post models.Post
	err := database.DB.Collection("posts").FindOne(ctx, bson.M{"_id": id}).Decode(&post)
	if err == mongo.ErrNoDocuments {
		return nil, apperrors.NotFound("Post not found")
	}
	if err != nil {
		return nil, apperrors.Wrap(apperrors.CodeInternal, "Failed to load post", err)
	}
	return &post, nil
}
