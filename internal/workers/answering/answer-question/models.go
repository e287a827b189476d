package answerquestion

import "commerce-answers/internal/models"

type Input = models.AnswerRequest

type Output = models.AnswerResponse
